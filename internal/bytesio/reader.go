// Package bytesio implements spec.md component 4.A: a stream-oriented
// reader over a seekable binary source with fixed-width little-endian
// integers, variable-length unsigned integers, fixed-length buffers, and a
// per-header consumed-bytes counter for bounds checks against externally
// declared sizes (extra-area size, header size).
package bytesio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/javi11/rar2hash/internal/varint"
)

// ErrShortRead is returned whenever a fixed-width read runs into EOF early.
var ErrShortRead = fmt.Errorf("rar2hash: short read")

// Reader wraps an io.ReadSeeker and tracks how many bytes have been pulled
// since the last call to ResetConsumed, so callers can bounds-check reads
// against a declared header size (e.g. RAR3's head-size field, RAR5's
// extra-area size).
type Reader struct {
	rs       io.ReadSeeker
	consumed int64
}

// New wraps rs for structured reads.
func New(rs io.ReadSeeker) *Reader {
	return &Reader{rs: rs}
}

// Consumed reports the number of bytes read since the last ResetConsumed.
func (r *Reader) Consumed() int64 { return r.consumed }

// ResetConsumed zeroes the bytes-consumed counter; callers call this at the
// start of each header so bounds checks are relative to that header.
func (r *Reader) ResetConsumed() { r.consumed = 0 }

func (r *Reader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.rs, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrShortRead
		}
		return nil, err
	}
	r.consumed += int64(n)
	return buf, nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (byte, error) {
	b, err := r.readFull(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	b, err := r.readFull(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32LE reads a little-endian uint32, failing with ErrShortRead on EOF.
func (r *Reader) ReadU32LE() (uint32, error) {
	b, err := r.readFull(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	return r.readFull(n)
}

// ReadVarint reads a RAR5-style base-128 varint, failing with
// varint.ErrTooLong if the 10th byte still carries the continuation bit.
// The width consumed is added to the bytes-consumed counter and also
// returned directly, since RAR5 header-footprint math needs it explicitly.
func (r *Reader) ReadVarint() (uint64, int, error) {
	var buf [varint.MaxBytes]byte
	n := 0
	for n < varint.MaxBytes {
		b, err := r.ReadU8()
		if err != nil {
			return 0, n, err
		}
		buf[n] = b
		n++
		if b&0x80 == 0 {
			break
		}
	}
	v, used, err := varint.ReadFromSlice(buf[:n])
	if err != nil {
		return 0, used, err
	}
	return v, used, nil
}

// Seek operations relative to current, end, or absolute. These do not
// affect the consumed-bytes counter, which tracks sequential reads within
// the current header only.
func (r *Reader) SeekAbs(off int64) error {
	_, err := r.rs.Seek(off, io.SeekStart)
	return err
}

func (r *Reader) SeekCur(delta int64) error {
	_, err := r.rs.Seek(delta, io.SeekCurrent)
	return err
}

func (r *Reader) SeekEnd(delta int64) error {
	_, err := r.rs.Seek(delta, io.SeekEnd)
	return err
}

// Pos reports the current absolute offset.
func (r *Reader) Pos() (int64, error) {
	return r.rs.Seek(0, io.SeekCurrent)
}
