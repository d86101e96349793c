package rartest

import "encoding/binary"

// RAR3Magic is the RAR3 signature (spec.md §3).
var RAR3Magic = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00} // "Rar!\x1A\x07\x00"

const (
	rar3ArchiveHeaderFixedSize = 13
	rar3FileHeaderFixedSize    = 32

	flagHeadersEncrypted = 0x0080
	flagEncryption       = 0x0004
	flagSolid            = 0x0010
	flagUnicodeName      = 0x0200
	flagSaltPresent      = 0x0400
	flagLongBlock        = 0x8000
	directoryDictBits    = 0x00E0
)

// RAR3ArchiveHeader builds the 13-byte archive header. headersEncrypted sets
// the 0x0080 flag that switches the parser into mode-0 (-hp).
func RAR3ArchiveHeader(headersEncrypted bool) []byte {
	var flags uint16
	if headersEncrypted {
		flags = flagHeadersEncrypted
	}
	b := make([]byte, rar3ArchiveHeaderFixedSize)
	// b[0:2] HEAD_CRC left zero
	b[2] = 0x73
	binary.LittleEndian.PutUint16(b[3:5], flags)
	binary.LittleEndian.PutUint16(b[5:7], rar3ArchiveHeaderFixedSize)
	// b[7:13] reserved, left zero
	return b
}

// FileHeaderOpts describes one RAR3 file header for RAR3FileHeader.
type FileHeaderOpts struct {
	Name       string
	PackSize   uint32
	UnpSize    uint32
	Method     byte
	Encrypted  bool
	Solid      bool
	Directory  bool
	Salt       []byte // 8 bytes, or nil for no per-file salt
}

// RAR3FileHeader builds a single file header (fixed fields + name + optional
// salt). The caller is responsible for appending PackSize bytes of body
// content immediately after this header in the archive byte stream.
func RAR3FileHeader(o FileHeaderOpts) []byte {
	var flags uint16 = flagLongBlock
	if o.Encrypted {
		flags |= flagEncryption
	}
	if o.Solid {
		flags |= flagSolid
	}
	if o.Directory {
		flags |= directoryDictBits
	}
	if len(o.Salt) > 0 {
		flags |= flagSaltPresent
	}
	if nameNeedsUnicodeFlag(o.Name) {
		flags |= flagUnicodeName
	}

	nameBytes := []byte(o.Name)
	headSize := rar3FileHeaderFixedSize + len(nameBytes) + len(o.Salt)

	b := make([]byte, 0, headSize)
	b = append(b, 0, 0) // HEAD_CRC
	b = append(b, 0x74) // HEAD_TYPE = file
	flagsB := make([]byte, 2)
	binary.LittleEndian.PutUint16(flagsB, flags)
	b = append(b, flagsB...)
	hsB := make([]byte, 2)
	binary.LittleEndian.PutUint16(hsB, uint16(headSize))
	b = append(b, hsB...)
	packB := make([]byte, 4)
	binary.LittleEndian.PutUint32(packB, o.PackSize)
	b = append(b, packB...)
	unpB := make([]byte, 4)
	binary.LittleEndian.PutUint32(unpB, o.UnpSize)
	b = append(b, unpB...)
	b = append(b, 0)          // HOST_OS
	b = append(b, 0, 0, 0, 0) // FILE_CRC
	b = append(b, 0, 0, 0, 0) // FTIME
	b = append(b, 0)          // UNP_VER
	b = append(b, o.Method)
	nsB := make([]byte, 2)
	binary.LittleEndian.PutUint16(nsB, uint16(len(nameBytes)))
	b = append(b, nsB...)
	b = append(b, 0, 0, 0, 0) // ATTR
	b = append(b, nameBytes...)
	b = append(b, o.Salt...)
	return b
}

// nameNeedsUnicodeFlag is always false for the plain ASCII names these test
// builders use; kept as a named hook so a future packed-name fixture builder
// can flip it without touching every call site.
func nameNeedsUnicodeFlag(string) bool { return false }

// BuildRAR3Archive assembles magic + a plaintext archive header + each file
// header followed by body bytes of the declared pack size.
func BuildRAR3Archive(files []FileHeaderOpts) []byte {
	out := append([]byte{}, RAR3Magic...)
	out = append(out, RAR3ArchiveHeader(false)...)
	for _, f := range files {
		out = append(out, RAR3FileHeader(f)...)
		out = append(out, fillBytes(int(f.PackSize))...)
	}
	return out
}

// BuildRAR3ModeZeroArchive assembles a headers-encrypted archive whose last
// 24 bytes are salt||knownPlaintext, per spec.md 4.C step 2.
func BuildRAR3ModeZeroArchive(salt [8]byte, knownPlaintext [16]byte, paddingBeforeTail int) []byte {
	out := append([]byte{}, RAR3Magic...)
	out = append(out, RAR3ArchiveHeader(true)...)
	out = append(out, fillBytes(paddingBeforeTail)...)
	out = append(out, salt[:]...)
	out = append(out, knownPlaintext[:]...)
	return out
}

func fillBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
