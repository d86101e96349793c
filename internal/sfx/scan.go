// Package sfx implements spec.md 4.F's SFX-stub scan: locating a RAR
// signature embedded inside a Windows PE stub by sliding a 4096-byte window
// through the stream, overlapping successive reads by len(magic)-1 bytes so
// a magic straddling a window boundary is still found.
package sfx

import (
	"bytes"
	"io"
)

const windowSize = 4096

// Find searches r (from its current position) for magic, returning the
// absolute offset (relative to r's starting position) of the first match,
// or ok=false if magic never appears. r must be an io.ReadSeeker positioned
// at the start of the region to search (the caller rewinds to offset 0
// before calling, per spec.md 4.F).
func Find(r io.ReadSeeker, magic []byte) (offset int64, ok bool, err error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false, err
	}

	overlap := len(magic) - 1
	window := make([]byte, windowSize)
	carry := 0
	pos := int64(0)

	for {
		n, rerr := io.ReadFull(r, window[carry:])
		total := carry + n
		if total >= len(magic) {
			if idx := bytes.Index(window[:total], magic); idx >= 0 {
				if _, serr := r.Seek(start+pos+int64(idx), io.SeekStart); serr != nil {
					return 0, false, serr
				}
				return pos + int64(idx), true, nil
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return 0, false, rerr
		}

		if overlap > 0 && total >= overlap {
			copy(window, window[total-overlap:total])
			pos += int64(total - overlap)
			carry = overlap
		} else {
			pos += int64(total)
			carry = 0
		}
	}

	if _, serr := r.Seek(start, io.SeekStart); serr != nil {
		return 0, false, serr
	}
	return 0, false, nil
}
