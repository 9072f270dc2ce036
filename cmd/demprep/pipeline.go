package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"demprep/internal/config"
	"demprep/internal/fsutil"
	"demprep/internal/manifest"
	"demprep/pkg/demprep"
)

type pipeline struct {
	cfg    *config.Config
	fsys   fsutil.FileSystem
	store  *manifest.Store
	inputs []string
}

func (p *pipeline) tile() error {
	if len(p.inputs) == 0 {
		return errors.New("tile: no input DEM given (use -input, positional paths or the config input key)")
	}
	for _, path := range p.inputs {
		if err := p.tileSource(path); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) tileSource(path string) error {
	fmt.Fprintf(stdout, "Loading: %s\n", path)
	startTime := time.Now()

	raster, info, err := demprep.LoadDEM(path, p.cfg.BorderColumns)
	if err != nil {
		return err
	}
	stats := demprep.ComputeRasterStats(raster, info.NoData, info.HasNoData)

	report, err := demprep.SliceDEM(raster, demprep.TileOptions{
		Size:              p.cfg.TileSize,
		BaseName:          demprep.SourceBaseName(path),
		Dir:               p.cfg.Dirs.Tiles,
		Ext:               p.cfg.TensorExt,
		MaxTilesPerSource: p.cfg.MaxTilesPerSource,
	}, p.fsys)
	if err != nil {
		return err
	}
	elapsed := time.Since(startTime)

	h, w := raster.Dims()
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "=== Tiling Results (%.1fs) ===\n", elapsed.Seconds())
	fmt.Fprintf(stdout, "  Source size:     %d x %d (%d bands)\n", info.Width, info.Height, info.Bands)
	fmt.Fprintf(stdout, "  After trim:      %d x %d\n", w, h)
	if stats.Count > 0 {
		fmt.Fprintf(stdout, "  Elevation:       %.2f .. %.2f\n", stats.Min, stats.Max)
		fmt.Fprintf(stdout, "  Median:          %.3f +/- %.3f\n", stats.Median, stats.MAD)
	}
	fmt.Fprintf(stdout, "  Tiles available: %d\n", report.Available)
	fmt.Fprintf(stdout, "  Tiles written:   %d\n", len(report.Written))
	if report.Capped > 0 {
		fmt.Fprintf(stdout, "  Tiles capped:    %d\n", report.Capped)
	}
	if len(report.Failed) > 0 {
		fmt.Fprintf(stdout, "  Tiles failed:    %d\n", len(report.Failed))
	}
	fmt.Fprintln(stdout, "==============================")

	var artifacts []manifest.Artifact
	for _, written := range report.Written {
		artifacts = append(artifacts, manifest.Artifact{Kind: manifest.KindTile, Path: written})
	}
	for _, failed := range report.Failed {
		artifacts = append(artifacts, manifest.Artifact{Kind: manifest.KindTile, Path: failed.Path, Err: failed.Err})
	}
	return p.record("tile", path, artifacts)
}

func (p *pipeline) masks() error {
	startTime := time.Now()
	report, err := demprep.BuildCatalog(demprep.CatalogOptions{
		CanvasSize: p.cfg.CanvasSize,
		Selection:  p.cfg.Selection(),
		MaskDir:    p.cfg.Dirs.Masks,
		WeightDir:  p.cfg.Dirs.Weights,
		Ext:        p.cfg.TensorExt,
		Workers:    p.cfg.Workers,
	}, p.fsys)
	if err != nil {
		return err
	}

	var artifacts []manifest.Artifact
	for _, e := range report.Entries {
		if e.OK() {
			artifacts = append(artifacts,
				manifest.Artifact{Kind: manifest.KindMask, Path: e.MaskPath},
				manifest.Artifact{Kind: manifest.KindWeight, Path: e.WeightPath})
			continue
		}
		artifacts = append(artifacts, manifest.Artifact{Kind: manifest.KindMask, Path: e.MaskPath, Err: e.Err})
	}
	if p.cfg.PreviewThumb > 0 && p.cfg.Dirs.Previews != "" {
		for _, o := range demprep.WriteCatalogPreviews(report, p.cfg.Dirs.Previews, p.cfg.PreviewThumb, p.fsys) {
			artifacts = append(artifacts, manifest.Artifact{Kind: manifest.KindPreview, Path: o.Path, Err: o.Err})
		}
	}
	elapsed := time.Since(startTime)

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "=== Mask Catalog (%.1fs) ===\n", elapsed.Seconds())
	for _, e := range report.Entries {
		status := "ok"
		if !e.OK() {
			status = "FAILED"
		}
		occluded := 0
		if e.Mask != nil {
			occluded = e.Mask.OccludedCount()
		}
		fmt.Fprintf(stdout, "  %-10s occluded=%-7d %s\n", e.ID, occluded, status)
	}
	fmt.Fprintln(stdout, "==============================")

	return p.record("masks", "", artifacts)
}

func (p *pipeline) lookup() error {
	tileIDs, err := demprep.ListTileIDs(p.fsys, p.cfg.Dirs.Tiles, p.cfg.TensorExt)
	if err != nil {
		return err
	}
	rows := demprep.AssembleLookup(tileIDs, p.cfg.Selection(), p.cfg.TensorExt)
	artifact := manifest.Artifact{Kind: manifest.KindLookup, Path: p.cfg.LookupPath}
	artifact.Err = demprep.WriteLookupFile(p.fsys, p.cfg.LookupPath, rows)

	fmt.Fprintf(stdout, "Lookup: %d tiles x %d masks = %d rows -> %s\n",
		len(tileIDs), len(p.cfg.Selection().Enabled()), len(rows), p.cfg.LookupPath)
	if err := p.record("lookup", "", []manifest.Artifact{artifact}); err != nil {
		return err
	}
	return artifact.Err
}

func (p *pipeline) trim() error {
	before, after, err := demprep.TrimLookupFile(p.fsys, p.cfg.LookupPath, p.cfg.BatchSize)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Trim: %d -> %d rows (batch size %d)\n", before, after, p.cfg.BatchSize)
	return p.record("trim", p.cfg.LookupPath, []manifest.Artifact{{Kind: manifest.KindLookup, Path: p.cfg.LookupPath}})
}

// record stores a finished stage in the manifest, when one is configured.
func (p *pipeline) record(stage, source string, artifacts []manifest.Artifact) error {
	if p.store == nil {
		return nil
	}
	runID, err := p.store.BeginRun(stage, source)
	if err != nil {
		return err
	}
	if len(artifacts) > 0 {
		if err := p.store.Record(runID, artifacts...); err != nil {
			return err
		}
	}
	if err := p.store.FinishRun(runID); err != nil {
		return err
	}
	sum, err := p.store.Summary(runID)
	if err != nil {
		return err
	}
	log.Debug().Str("run", runID).Str("stage", stage).Int("written", sum.Written).Int("failed", sum.Failed).Msg("manifest updated")
	return nil
}
