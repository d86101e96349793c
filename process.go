// Package rar2hash implements spec.md's RAR password-hash extractor end to
// end: format dispatch (4.F), the RAR3 and RAR5 state machines (4.C, 4.D),
// candidate selection (4.E), and final record assembly (4.G).
package rar2hash

import (
	"fmt"
	"path/filepath"

	"github.com/javi11/rar2hash/internal/diag"
	"github.com/javi11/rar2hash/internal/hashrecord"
	"github.com/javi11/rar2hash/internal/rar3"
	"github.com/javi11/rar2hash/internal/rar5"
	"github.com/javi11/rar2hash/internal/selector"
)

// ProcessArchive opens path on fsys, classifies its format, parses it, and
// renders every hash record it yields as a line of output. A nil slice with
// a nil error means parsing succeeded but no candidate was ever admitted
// (spec.md §7: reported via sink, never a hard per-archive error).
func ProcessArchive(fsys FileSystem, path string, sink *diag.Sink) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rar2hash: io error: open %s: %w", path, err)
	}
	defer f.Close()

	format, err := classify(f)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)

	switch format {
	case formatRAR3:
		return processRAR3(f, base, path, sink)
	case formatRAR5:
		return processRAR5(f, base, sink)
	default:
		return nil, ErrNotArchive
	}
}

func processRAR3(f ReadSeekCloser, base, path string, sink *diag.Sink) ([]string, error) {
	out, err := rar3.Parse(f, sink)
	if err != nil {
		return nil, err
	}

	if out.Mode0 != nil {
		return []string{hashrecord.Mode0(base, out.Mode0.Salt, out.Mode0.KnownPlaintext, path)}, nil
	}

	if out.Candidate == nil {
		if sink != nil {
			sink.Error(ErrNoCandidate.Error(), "archive", path)
		}
		return nil, nil
	}

	c := out.Candidate
	if sink != nil && selector.BelowWarnThreshold(c) {
		sink.Advisory("selected candidate has a very small plaintext", "archive", path, "unpacked", c.UnpackedSize)
	}

	var salt [8]byte
	copy(salt[:], c.Salt)

	line := hashrecord.Mode1(hashrecord.Mode1Params{
		Base:         base,
		Salt:         salt,
		CRC32:        c.CRC,
		PackedSize:   c.PackedSize,
		UnpackedSize: c.UnpackedSize,
		Ciphertext:   c.Ciphertext,
		Method:       c.Method,
		Filenames:    out.Filenames,
	})
	return []string{line}, nil
}

func processRAR5(f ReadSeekCloser, base string, sink *diag.Sink) ([]string, error) {
	recs, err := rar5.Parse(f, sink)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, hashrecord.Rar5(hashrecord.Rar5Params{
			Base:          base,
			Salt:          rec.Salt,
			Log2Count:     rec.Log2Count,
			IV:            rec.IV,
			PasswordCheck: rec.PasswordCheck,
		}))
	}
	return lines, nil
}
