package rartest

import (
	"crypto/sha256"

	"github.com/javi11/rar2hash/internal/varint"
)

// RAR5Magic is the RAR5 signature (spec.md §3).
var RAR5Magic = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}

const (
	rar5BlockTypeMain    = 1
	rar5BlockTypeFile    = 2
	rar5BlockTypeCrypt   = 4
	rar5BlockTypeEnd     = 5
	rar5FieldTypeCrypt   = 1
)

// buildBlock assembles one RAR5 header block: a zeroed CRC, a varint block
// size, and the content (type byte + flags varint + conditional extra/data
// size varints + body + extra). The extra-area and data-size flag bits are
// derived from whether extra/data are non-empty.
func buildBlock(headerType byte, baseFlags uint64, body, extra, data []byte) []byte {
	flags := baseFlags
	if len(extra) > 0 {
		flags |= 0x0001
	}
	if len(data) > 0 {
		flags |= 0x0002
	}

	var content []byte
	content = append(content, headerType)
	content = append(content, varint.Encode(flags)...)
	if len(extra) > 0 {
		content = append(content, varint.Encode(uint64(len(extra)))...)
	}
	if len(data) > 0 {
		content = append(content, varint.Encode(uint64(len(data)))...)
	}
	content = append(content, body...)
	content = append(content, extra...)

	out := []byte{0, 0, 0, 0} // header CRC, unchecked by the parser
	out = append(out, varint.Encode(uint64(len(content)))...)
	out = append(out, content...)
	out = append(out, data...)
	return out
}

// BuildRAR5MainBlock builds a main header with archiveFlags = 0.
func BuildRAR5MainBlock() []byte {
	return buildBlock(rar5BlockTypeMain, 0, varint.Encode(0), nil, nil)
}

// BuildRAR5EndBlock builds an end-of-archive header.
func BuildRAR5EndBlock() []byte {
	return buildBlock(rar5BlockTypeEnd, 0, nil, nil, nil)
}

// BuildRAR5CryptBlock builds a crypt header. When pswCheck is non-nil, the
// pswcheck flag is set and the 4-byte SHA-256 truncation checksum is
// computed for it, per spec.md's data model for the RAR5 crypt block.
func BuildRAR5CryptBlock(log2Count byte, salt [16]byte, pswCheck *[12]byte) []byte {
	var body []byte
	body = append(body, varint.Encode(0)...) // crypt-version = 0
	var encFlags uint64
	if pswCheck != nil {
		encFlags = 1
	}
	body = append(body, varint.Encode(encFlags)...)
	body = append(body, log2Count)
	body = append(body, salt[:]...)
	if pswCheck != nil {
		sum := sha256.Sum256(pswCheck[:])
		body = append(body, pswCheck[:]...)
		body = append(body, sum[:4]...)
	}
	return buildBlock(rar5BlockTypeCrypt, 0, body, nil, nil)
}

// BuildRAR5FileBlockPlain builds a file header with no extra area.
func BuildRAR5FileBlockPlain(name string, unpackedSize uint64) []byte {
	body := plainFileBody(name, unpackedSize)
	return buildBlock(rar5BlockTypeFile, 0, body, nil, nil)
}

// BuildRAR5FileBlockWithCryptExtra builds a file header whose extra area
// carries a single crypt(1) TLV record with the pswcheck flag set, per
// spec.md 4.D.i.
func BuildRAR5FileBlockWithCryptExtra(name string, unpackedSize uint64, log2Count byte, salt, iv [16]byte, pswCheck [12]byte) []byte {
	body := plainFileBody(name, unpackedSize)

	var payload []byte
	payload = append(payload, varint.Encode(0)...) // enc-version
	payload = append(payload, varint.Encode(1)...) // flags: pswcheck present
	payload = append(payload, log2Count)
	payload = append(payload, salt[:]...)
	payload = append(payload, iv[:]...)
	payload = append(payload, pswCheck[:]...)

	typeField := varint.Encode(rar5FieldTypeCrypt)
	fieldSize := uint64(len(typeField) + len(payload))

	var extra []byte
	extra = append(extra, varint.Encode(fieldSize)...)
	extra = append(extra, typeField...)
	extra = append(extra, payload...)

	return buildBlock(rar5BlockTypeFile, 0, body, extra, nil)
}

func plainFileBody(name string, unpackedSize uint64) []byte {
	var body []byte
	body = append(body, varint.Encode(0)...)            // file flags = 0 (no utime/crc32)
	body = append(body, varint.Encode(unpackedSize)...)  // unpacked size
	body = append(body, varint.Encode(0)...)             // attributes
	body = append(body, varint.Encode(0)...)             // compression info
	body = append(body, varint.Encode(0)...)             // host OS
	nameBytes := []byte(name)
	body = append(body, varint.Encode(uint64(len(nameBytes)))...)
	body = append(body, nameBytes...)
	return body
}

// BuildRAR5Archive concatenates the magic and every given block.
func BuildRAR5Archive(blocks ...[]byte) []byte {
	out := append([]byte{}, RAR5Magic...)
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}
