package rar2hash

import (
	"bytes"
	"fmt"
	"io"

	"github.com/javi11/rar2hash/internal/sfx"
)

// rar3Magic and rar5Magic are the two signatures this tool recognizes
// (spec.md §3). oldMagic is the pre-1.5 RAR signature: recognized only so it
// can be rejected with ErrUnsupportedVersion instead of ErrNotArchive.
var (
	rar3Magic = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}
	rar5Magic = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}
	oldMagic  = []byte{0x52, 0x45, 0x7E, 0x5E}
	peMagic   = []byte{0x4D, 0x5A} // "MZ"
)

// archiveFormat names which parser owns the stream once classify returns.
type archiveFormat int

const (
	formatRAR3 archiveFormat = iota
	formatRAR5
)

// classify implements spec.md 4.F: read the leading bytes, reject the old
// pre-1.5 signature, match RAR3/RAR5 directly, and fall back to an SFX-stub
// scan when the stream opens with an "MZ" PE stub. On return, r is
// positioned immediately after the matched magic, ready for the matching
// parser.
func classify(r io.ReadSeeker) (archiveFormat, error) {
	head := make([]byte, 8)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("rar2hash: io error: reading signature: %w", err)
	}
	head = head[:n]

	if len(head) >= 7 && bytes.Equal(head[:7], rar3Magic) {
		if _, serr := r.Seek(7, io.SeekStart); serr != nil {
			return 0, fmt.Errorf("rar2hash: io error: %w", serr)
		}
		return formatRAR3, nil
	}
	if len(head) >= 8 && bytes.Equal(head[:8], rar5Magic) {
		if _, serr := r.Seek(8, io.SeekStart); serr != nil {
			return 0, fmt.Errorf("rar2hash: io error: %w", serr)
		}
		return formatRAR5, nil
	}
	if len(head) >= 7 && bytes.Equal(head[:4], oldMagic) {
		return 0, ErrUnsupportedVersion
	}

	if len(head) >= 2 && bytes.Equal(head[:2], peMagic) {
		if _, serr := r.Seek(0, io.SeekStart); serr != nil {
			return 0, fmt.Errorf("rar2hash: io error: %w", serr)
		}
		if off, ok, ferr := sfx.Find(r, rar3Magic); ferr != nil {
			return 0, fmt.Errorf("rar2hash: io error: sfx scan: %w", ferr)
		} else if ok {
			if _, serr := r.Seek(off+int64(len(rar3Magic)), io.SeekStart); serr != nil {
				return 0, fmt.Errorf("rar2hash: io error: %w", serr)
			}
			return formatRAR3, nil
		}

		if _, serr := r.Seek(0, io.SeekStart); serr != nil {
			return 0, fmt.Errorf("rar2hash: io error: %w", serr)
		}
		if off, ok, ferr := sfx.Find(r, rar5Magic); ferr != nil {
			return 0, fmt.Errorf("rar2hash: io error: sfx scan: %w", ferr)
		} else if ok {
			if _, serr := r.Seek(off+int64(len(rar5Magic)), io.SeekStart); serr != nil {
				return 0, fmt.Errorf("rar2hash: io error: %w", serr)
			}
			return formatRAR5, nil
		}

		return 0, ErrNotArchive
	}

	return 0, ErrNotArchive
}
