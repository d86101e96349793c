package rar3

import (
	"bytes"
	"testing"

	"github.com/javi11/rar2hash/internal/rartest"
)

func afterMagic(data []byte) *bytes.Reader {
	return bytes.NewReader(data[len(rartest.RAR3Magic):])
}

func TestParseModeZero(t *testing.T) {
	salt := [8]byte{0, 1, 2, 3, 4, 5, 6, 7}
	plain := [16]byte{}
	for i := range plain {
		plain[i] = byte(0x10 + i)
	}
	data := rartest.BuildRAR3ModeZeroArchive(salt, plain, 50)

	out, err := Parse(afterMagic(data), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Mode0 == nil {
		t.Fatal("expected a mode-0 outcome")
	}
	if out.Mode0.Salt != salt {
		t.Fatalf("salt mismatch: got %x want %x", out.Mode0.Salt, salt)
	}
	if out.Mode0.KnownPlaintext != plain {
		t.Fatalf("known-plaintext mismatch: got %x want %x", out.Mode0.KnownPlaintext, plain)
	}
}

func TestParseDirectoryOnlyYieldsNoCandidate(t *testing.T) {
	data := rartest.BuildRAR3Archive([]rartest.FileHeaderOpts{
		{Name: "adir", PackSize: 0, UnpSize: 0, Method: 0x30, Encrypted: true, Directory: true},
	})
	out, err := Parse(afterMagic(data), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Candidate != nil {
		t.Fatalf("expected no candidate for a directory-only archive, got %+v", out.Candidate)
	}
}

func TestParseTwoEntriesTieBreak(t *testing.T) {
	data := rartest.BuildRAR3Archive([]rartest.FileHeaderOpts{
		{Name: "first.bin", PackSize: 1000, UnpSize: 5, Method: 0x30, Encrypted: true},
		{Name: "second.bin", PackSize: 1000, UnpSize: 20, Method: 0x30, Encrypted: true},
	})
	out, err := Parse(afterMagic(data), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Candidate == nil {
		t.Fatal("expected a candidate")
	}
	if out.Candidate.UnpackedSize != 20 {
		t.Fatalf("expected the >=8-byte tie winner (unpacked=20), got %d", out.Candidate.UnpackedSize)
	}
	if len(out.Filenames) != 2 {
		t.Fatalf("expected both filenames accumulated, got %v", out.Filenames)
	}
}

func TestParseSolidEntrySkipped(t *testing.T) {
	data := rartest.BuildRAR3Archive([]rartest.FileHeaderOpts{
		{Name: "solid.bin", PackSize: 100, UnpSize: 100, Method: 0x31, Encrypted: true, Solid: true},
	})
	out, err := Parse(afterMagic(data), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Candidate != nil {
		t.Fatalf("expected solid entry to be skipped, got candidate %+v", out.Candidate)
	}
}

func TestParseUnencryptedEntrySkipped(t *testing.T) {
	data := rartest.BuildRAR3Archive([]rartest.FileHeaderOpts{
		{Name: "plain.bin", PackSize: 50, UnpSize: 50, Method: 0x30, Encrypted: false},
	})
	out, err := Parse(afterMagic(data), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.Candidate != nil {
		t.Fatalf("expected unencrypted entry to be skipped, got candidate %+v", out.Candidate)
	}
}

func TestParseMissingLongBlockFlagIsStructuralError(t *testing.T) {
	hdr := rartest.RAR3FileHeader(rartest.FileHeaderOpts{Name: "x", PackSize: 1, UnpSize: 1, Method: 0x30, Encrypted: true})
	// Clear the 0x8000 bit (bytes 3-4 of the header, little endian).
	hdr[4] &^= 0x80
	data := append([]byte{}, rartest.RAR3Magic...)
	data = append(data, rartest.RAR3ArchiveHeader(false)...)
	data = append(data, hdr...)
	data = append(data, 0x00)

	_, err := Parse(afterMagic(data), nil)
	if err == nil {
		t.Fatal("expected a structural error for a missing 0x8000 flag")
	}
}
