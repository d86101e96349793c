// Package rartest is the shared test harness for the RAR3/RAR5 parser
// packages and the top-level dispatcher: an in-memory FileSystem fake plus
// byte-level archive builders, adapted from the teacher's
// legacy_bench_test.go memFS/memFile helpers so every package's tests can
// build fixtures without touching a real filesystem.
package rartest

import (
	"bytes"
	"io"
	"io/fs"
)

// MemFS is an in-memory rar2hash.FileSystem backed by a path->bytes map.
type MemFS struct {
	Files map[string][]byte
}

// NewMemFS builds a MemFS from a path->bytes map.
func NewMemFS(files map[string][]byte) MemFS {
	return MemFS{Files: files}
}

func (m MemFS) Open(path string) (io.ReadSeekCloser, error) {
	data, ok := m.Files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return &memFile{Reader: bytes.NewReader(data)}, nil
}

type memFile struct {
	*bytes.Reader
}

func (m *memFile) Close() error { return nil }
