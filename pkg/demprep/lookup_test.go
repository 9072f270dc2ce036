package demprep

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demprep/internal/fsutil"
)

func tileIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("dem_%d.tensor", i+1)
	}
	return ids
}

func TestAssembleLookup(t *testing.T) {
	rows := AssembleLookup(tileIDs(5), SelectOnly(ShapeTopStrip, ShapeTopLeftEdge), "tensor")
	require.Len(t, rows, 10)

	want := []LookupRow{
		{"dem_1.tensor", "tl_edge.tensor", "tl_edge_w.tensor"},
		{"dem_1.tensor", "t_strip.tensor", "t_strip_w.tensor"},
		{"dem_2.tensor", "tl_edge.tensor", "tl_edge_w.tensor"},
		{"dem_2.tensor", "t_strip.tensor", "t_strip_w.tensor"},
	}
	if diff := cmp.Diff(want, rows[:4]); diff != "" {
		t.Errorf("AssembleLookup() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, LookupRow{"dem_5.tensor", "t_strip.tensor", "t_strip_w.tensor"}, rows[9])

	assert.Empty(t, AssembleLookup(nil, DefaultSelection(), ""))
	assert.Empty(t, AssembleLookup(tileIDs(3), Selection{}, ""))
	assert.Len(t, AssembleLookup(tileIDs(3), DefaultSelection(), ""), 24)
}

func TestTrimToBatch(t *testing.T) {
	rows := AssembleLookup(tileIDs(7), SelectOnly(ShapeCircle), "")
	tests := []struct {
		batch int
		want  int
	}{
		{1, 7},
		{2, 6},
		{3, 6},
		{7, 7},
		{8, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("batch=%d", tt.batch), func(t *testing.T) {
			got, err := TrimToBatch(rows, tt.batch)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			if diff := cmp.Diff(rows[:tt.want], got); diff != "" {
				t.Errorf("TrimToBatch() is not a prefix (-want +got):\n%s", diff)
			}
		})
	}

	got, err := TrimToBatch(nil, 4)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, batch := range []int{0, -2} {
		_, err := TrimToBatch(rows, batch)
		assert.ErrorIs(t, err, ErrInvalidSize)
	}
}

func TestWriteReadLookup(t *testing.T) {
	rows := AssembleLookup(tileIDs(2), SelectOnly(ShapeSquare), "tensor")
	var buf bytes.Buffer
	require.NoError(t, WriteLookup(&buf, rows))
	assert.Equal(t, "dem_1.tensor,sqr.tensor,sqr_w.tensor\r\ndem_2.tensor,sqr.tensor,sqr_w.tensor\r\n", buf.String())

	got, err := ReadLookup(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("ReadLookup() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLookupMalformed(t *testing.T) {
	_, err := ReadLookup(bytes.NewBufferString("a,b,c\nd,e\n"))
	assert.ErrorIs(t, err, ErrLookupTableMissing)
}

func TestTrimLookupFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rows := AssembleLookup(tileIDs(5), SelectOnly(ShapeTopLeftEdge, ShapeCircle), "")
	require.NoError(t, WriteLookupFile(fsys, "data/lookup.csv", rows))

	before, after, err := TrimLookupFile(fsys, "data/lookup.csv", 4)
	require.NoError(t, err)
	assert.Equal(t, 10, before)
	assert.Equal(t, 8, after)

	got, err := ReadLookupFile(fsys, "data/lookup.csv")
	require.NoError(t, err)
	if diff := cmp.Diff(rows[:8], got); diff != "" {
		t.Errorf("trimmed file mismatch (-want +got):\n%s", diff)
	}

	// already a multiple: nothing changes
	before, after, err = TrimLookupFile(fsys, "data/lookup.csv", 4)
	require.NoError(t, err)
	assert.Equal(t, 8, before)
	assert.Equal(t, 8, after)
}

func TestTrimLookupFileEmptied(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rows := AssembleLookup(tileIDs(3), SelectOnly(ShapeCircle), "")
	require.NoError(t, WriteLookupFile(fsys, "lookup.csv", rows))

	_, after, err := TrimLookupFile(fsys, "lookup.csv", 16)
	require.NoError(t, err)
	assert.Zero(t, after)

	data, err := fsys.ReadFile("lookup.csv")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestTrimLookupFileErrors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	_, _, err := TrimLookupFile(fsys, "missing.csv", 4)
	assert.ErrorIs(t, err, ErrLookupTableMissing)

	_, _, err = TrimLookupFile(fsys, "missing.csv", 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	require.NoError(t, fsys.WriteFile("bad.csv", []byte("only,two\n"), 0o644))
	_, _, err = TrimLookupFile(fsys, "bad.csv", 2)
	assert.ErrorIs(t, err, ErrLookupTableMissing)
}

func TestListTileIDs(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("tiles", 0o755))
	for _, name := range []string{"dem_10.tensor", "dem_2.tensor", "dem_1.tensor", "alpha_3.tensor", "notes.txt", "dem_x.tensor"} {
		require.NoError(t, fsys.WriteFile("tiles/"+name, []byte("x"), 0o644))
	}

	ids, err := ListTileIDs(fsys, "tiles", "tensor")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha_3.tensor", "dem_1.tensor", "dem_2.tensor", "dem_10.tensor", "dem_x.tensor"}, ids)

	_, err = ListTileIDs(fsys, "nowhere", "tensor")
	assert.Error(t, err)
}
