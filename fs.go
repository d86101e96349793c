package rar2hash

import (
	"io"
	"os"
)

// ReadSeekCloser is the minimal capability the archive parsers need: random
// access for the SFX scan, mode-0 tail read, and RAR5 extra-area seeks, plus
// a Close to release the handle on every exit path. It is an alias of
// io.ReadSeekCloser, so a FileSystem fake can implement Open without
// importing this package.
type ReadSeekCloser = io.ReadSeekCloser

// FileSystem abstracts opening an archive path, the same seam the teacher's
// FileSystem interface draws around os.Open — kept here so tests can swap in
// an in-memory fake without touching a real filesystem.
type FileSystem interface {
	Open(path string) (ReadSeekCloser, error)
}

type osFS struct{}

func (osFS) Open(path string) (ReadSeekCloser, error) { return os.Open(path) }

// DefaultFS is the production FileSystem, backed by the OS.
var DefaultFS FileSystem = osFS{}
