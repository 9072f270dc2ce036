package demprep

import (
	"errors"
	"os"
	"strings"

	"demprep/internal/fsutil"
)

var errDiskFull = errors.New("disk full")

// failingFS is an in-memory filesystem whose writes fail for matching paths.
type failingFS struct {
	*fsutil.MemoryFileSystem
	failWrite func(path string) bool
	failMkdir bool
}

func newFailingFS(failWrite func(path string) bool) *failingFS {
	return &failingFS{MemoryFileSystem: fsutil.NewMemoryFileSystem(), failWrite: failWrite}
}

func (f *failingFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	if f.failWrite != nil && f.failWrite(name) {
		return errDiskFull
	}
	return f.MemoryFileSystem.WriteFile(name, data, perm)
}

func (f *failingFS) MkdirAll(path string, perm os.FileMode) error {
	if f.failMkdir {
		return errDiskFull
	}
	return f.MemoryFileSystem.MkdirAll(path, perm)
}

// maskPicture renders a mask as one string of 0/1 per row.
func maskPicture(m *Mask) []string {
	out := make([]string, m.Rows)
	for i := 0; i < m.Rows; i++ {
		var b strings.Builder
		for j := 0; j < m.Cols; j++ {
			b.WriteByte('0' + m.At(i, j))
		}
		out[i] = b.String()
	}
	return out
}

func mustMask(rows ...string) *Mask {
	pix := make([][]uint8, len(rows))
	for i, r := range rows {
		pix[i] = make([]uint8, len(r))
		for j := range r {
			pix[i][j] = r[j] - '0'
		}
	}
	m, err := MaskFromRows(pix)
	if err != nil {
		panic(err)
	}
	return m
}
