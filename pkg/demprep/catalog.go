package demprep

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"demprep/internal/fsutil"
)

// ShapeID names a catalog entry. It is also the stem of its artifact names.
type ShapeID string

const (
	ShapeTopLeftEdge      ShapeID = "tl_edge"
	ShapeTopRightEdge     ShapeID = "tr_edge"
	ShapeTopLeftStrip     ShapeID = "tl_strip"
	ShapeBottomRightStrip ShapeID = "br_edge"
	ShapeSquare           ShapeID = "sqr"
	ShapeCentreStrip      ShapeID = "c_strip"
	ShapeCircle           ShapeID = "circle"
	ShapeEllipse          ShapeID = "ellipse"
	ShapePolygon          ShapeID = "polygon"
	ShapeLeftStrip        ShapeID = "l_strip"
	ShapeHorizontalStrip  ShapeID = "h_strip"
	ShapeTopStrip         ShapeID = "t_strip"
)

// CatalogEntry binds a shape id to its generator with the reference parameters.
type CatalogEntry struct {
	ID       ShapeID
	Label    string
	Generate func(n int) (*Mask, error)
}

var catalog = []CatalogEntry{
	{ShapeTopLeftEdge, "top-left edge", TopLeftEdgeMask},
	{ShapeTopRightEdge, "top-right edge", TopRightEdgeMask},
	{ShapeTopLeftStrip, "top-left strip", TopLeftStripMask},
	{ShapeBottomRightStrip, "bottom-right strip", BottomRightStripMask},
	{ShapeSquare, "square", func(n int) (*Mask, error) { return SquareMask(n, n/4) }},
	{ShapeCentreStrip, "centre strip", func(n int) (*Mask, error) { return CentreStripMask(n, n/8) }},
	{ShapeCircle, "circle", func(n int) (*Mask, error) { return CircleMask(n, n/4) }},
	{ShapeEllipse, "ellipse", func(n int) (*Mask, error) { return EllipseMask(n, n/3, n/6) }},
	{ShapePolygon, "centre triangle", CentreTriangleMask},
	{ShapeLeftStrip, "left strip", func(n int) (*Mask, error) { return LeftStripMask(n, n/6) }},
	{ShapeHorizontalStrip, "horizontal strip", func(n int) (*Mask, error) { return HorizontalStripMask(n, n/6) }},
	{ShapeTopStrip, "top strip", func(n int) (*Mask, error) { return TopStripMask(n, n/7) }},
}

// Catalog returns the mask catalog in its fixed order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// ShapeIDs returns every catalog id in catalog order.
func ShapeIDs() []ShapeID {
	ids := make([]ShapeID, len(catalog))
	for i, e := range catalog {
		ids[i] = e.ID
	}
	return ids
}

// LookupShape returns the catalog entry for id.
func LookupShape(id ShapeID) (CatalogEntry, error) {
	for _, e := range catalog {
		if e.ID == id {
			return e, nil
		}
	}
	return CatalogEntry{}, fmt.Errorf("%q: %w", id, ErrUnknownShape)
}

// Selection marks which catalog entries are active. Missing ids are disabled.
// It is always iterated in catalog order, never in map order.
type Selection map[ShapeID]bool

// DefaultSelection enables the edge and strip masks and disables the centred
// blob shapes.
func DefaultSelection() Selection {
	return Selection{
		ShapeTopLeftEdge:      true,
		ShapeTopRightEdge:     true,
		ShapeTopLeftStrip:     true,
		ShapeBottomRightStrip: true,
		ShapeSquare:           false,
		ShapeCentreStrip:      true,
		ShapeCircle:           false,
		ShapeEllipse:          false,
		ShapePolygon:          false,
		ShapeLeftStrip:        true,
		ShapeHorizontalStrip:  true,
		ShapeTopStrip:         true,
	}
}

// SelectOnly returns a selection with exactly ids enabled.
func SelectOnly(ids ...ShapeID) Selection {
	s := Selection{}
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// Validate reports ids that are not part of the catalog.
func (s Selection) Validate() error {
	var unknown []string
	for id := range s {
		if _, err := LookupShape(id); err != nil {
			unknown = append(unknown, string(id))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%s: %w", strings.Join(unknown, ", "), ErrUnknownShape)
	}
	return nil
}

// Enabled returns the enabled entries in catalog order.
func (s Selection) Enabled() []CatalogEntry {
	var out []CatalogEntry
	for _, e := range catalog {
		if s[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

// MaskName returns the artifact file name of a mask.
func MaskName(id ShapeID, ext string) string {
	return fmt.Sprintf("%s.%s", id, ext)
}

// WeightName returns the artifact file name of a weight matrix.
func WeightName(id ShapeID, ext string) string {
	return fmt.Sprintf("%s_w.%s", id, ext)
}

// CatalogOptions configures BuildCatalog.
type CatalogOptions struct {
	CanvasSize int
	Selection  Selection
	MaskDir    string
	WeightDir  string
	Ext        string
	// Workers > 1 builds entries concurrently. Output order and names do not change.
	Workers int
}

// EntryOutcome is the result of building one catalog entry.
type EntryOutcome struct {
	ID         ShapeID
	MaskPath   string
	WeightPath string
	Mask       *Mask
	Weights    *mat.Dense
	Err        error
}

// OK reports whether the entry was generated and persisted.
func (o EntryOutcome) OK() bool { return o.Err == nil }

// CatalogReport holds one outcome per enabled entry, in catalog order.
type CatalogReport struct {
	Entries []EntryOutcome
}

// Failed returns the entries that could not be generated or persisted.
func (r *CatalogReport) Failed() []EntryOutcome {
	var out []EntryOutcome
	for _, e := range r.Entries {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// Pairs returns the generated mask and weight matrix of every entry that produced them.
func (r *CatalogReport) Pairs() map[ShapeID]MaskPair {
	out := make(map[ShapeID]MaskPair, len(r.Entries))
	for _, e := range r.Entries {
		if e.Mask != nil && e.Weights != nil {
			out[e.ID] = MaskPair{Mask: e.Mask, Weights: e.Weights}
		}
	}
	return out
}

// MaskPair is a mask together with its derived weights.
type MaskPair struct {
	Mask    *Mask
	Weights *mat.Dense
}

// BuildCatalog generates every enabled mask, derives its weights and persists
// both. A failing entry is logged and reported without stopping the others.
// Structural problems (bad canvas size, unknown shape ids, unusable output
// directories) are returned as errors.
func BuildCatalog(opts CatalogOptions, fsys fsutil.FileSystem) (*CatalogReport, error) {
	if opts.CanvasSize <= 0 {
		return nil, fmt.Errorf("canvas size %d: %w", opts.CanvasSize, ErrInvalidSize)
	}
	if err := opts.Selection.Validate(); err != nil {
		return nil, err
	}
	if opts.Ext == "" {
		opts.Ext = DefaultTensorExt
	}
	for _, dir := range []string{opts.MaskDir, opts.WeightDir} {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w: %w", dir, ErrStorageWrite, err)
		}
	}

	entries := opts.Selection.Enabled()
	report := &CatalogReport{Entries: make([]EntryOutcome, len(entries))}

	workers := max(1, min(opts.Workers, len(entries)))
	if workers == 1 {
		for i, e := range entries {
			report.Entries[i] = buildEntry(e, opts, fsys)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					report.Entries[i] = buildEntry(entries[i], opts, fsys)
				}
			}()
		}
		for i := range entries {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	for _, e := range report.Entries {
		if e.Err != nil {
			Logger.Error().Err(e.Err).Str("shape", string(e.ID)).Msg("mask could not be saved, or the file only contains partial data")
			continue
		}
		Logger.Debug().Str("shape", string(e.ID)).Str("mask", e.MaskPath).Str("weights", e.WeightPath).Msg("mask created")
	}
	return report, nil
}

func buildEntry(e CatalogEntry, opts CatalogOptions, fsys fsutil.FileSystem) EntryOutcome {
	out := EntryOutcome{
		ID:         e.ID,
		MaskPath:   filepath.Join(opts.MaskDir, MaskName(e.ID, opts.Ext)),
		WeightPath: filepath.Join(opts.WeightDir, WeightName(e.ID, opts.Ext)),
	}
	m, err := e.Generate(opts.CanvasSize)
	if err != nil {
		out.Err = fmt.Errorf("generating %s: %w", e.ID, err)
		return out
	}
	w, err := DeriveWeights(m)
	if err != nil {
		out.Err = fmt.Errorf("weighting %s: %w", e.ID, err)
		return out
	}
	out.Mask, out.Weights = m, w
	if err := writeTensor(fsys, out.MaskPath, MaskTensor(m)); err != nil {
		out.Err = err
		return out
	}
	if err := writeTensor(fsys, out.WeightPath, WeightTensor(w)); err != nil {
		out.Err = err
	}
	return out
}
