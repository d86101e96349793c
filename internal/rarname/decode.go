// Package rarname implements spec.md component 4.B: RAR3's packed
// OEM+UTF-16 filename encoding. A name is stored as a NUL-terminated
// OEM-style byte string followed by a packed wide-character command
// stream; this package expands that command stream into UTF-16 and then,
// via golang.org/x/text, into UTF-8.
package rarname

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxNameChars bounds the destination capacity the decoder will ever fill,
// matching spec.md's "destination is always NUL-terminated" / bounded
// capacity invariant.
const MaxNameChars = 4096

// Decode expands asciiName (the OEM-style low-byte name, NUL already
// stripped by the caller) plus packed (the command-stream region, starting
// with the HighByte prefix byte as spec.md 4.B describes) into a UTF-16
// code unit slice, then converts it to UTF-8 via golang.org/x/text.
//
// Decoding stops at either source exhaustion or destination capacity; the
// returned slice is never longer than MaxNameChars and is implicitly
// NUL-terminated by stopping before any trailing NUL reached in asciiName.
func Decode(asciiName, packed []byte) (string, error) {
	units := decodeUnits(asciiName, packed)
	return utf16ToUTF8(units)
}

// decodeUnits runs the 2-bit command stream described in spec.md 4.B:
// flag bytes are consumed one per four commands, commands read MSB-first
// within each flag byte.
func decodeUnits(name, packed []byte) []uint16 {
	if len(packed) == 0 {
		return asciiOnly(name)
	}

	highByte := packed[0]
	encPos := 1
	destPos := 0
	out := make([]uint16, 0, len(name))

	var flags byte
	var flagBits int

	nextFlag := func() int {
		if flagBits == 0 {
			if encPos >= len(packed) {
				return -1
			}
			flags = packed[encPos]
			encPos++
			flagBits = 8
		}
		cmd := int(flags >> 6)
		flags <<= 2
		flagBits -= 2
		return cmd
	}

	for destPos < len(name) && destPos < MaxNameChars {
		cmd := nextFlag()
		if cmd < 0 {
			break
		}
		switch cmd {
		case 0:
			if encPos >= len(packed) {
				destPos = len(name)
				continue
			}
			out = append(out, uint16(packed[encPos]))
			encPos++
			destPos++
		case 1:
			if encPos >= len(packed) {
				destPos = len(name)
				continue
			}
			out = append(out, uint16(packed[encPos])|uint16(highByte)<<8)
			encPos++
			destPos++
		case 2:
			if encPos+1 >= len(packed) {
				destPos = len(name)
				continue
			}
			out = append(out, uint16(packed[encPos])|uint16(packed[encPos+1])<<8)
			encPos += 2
			destPos++
		case 3:
			if encPos >= len(packed) {
				destPos = len(name)
				continue
			}
			length := packed[encPos]
			encPos++
			if length&0x80 != 0 {
				if encPos >= len(packed) {
					destPos = len(name)
					continue
				}
				correction := packed[encPos]
				encPos++
				count := int(length&0x7f) + 2
				for i := 0; i < count && destPos < len(name) && destPos < MaxNameChars; i++ {
					low := (name[destPos] + correction) & 0xff
					out = append(out, uint16(low)|uint16(highByte)<<8)
					destPos++
				}
			} else {
				count := int(length) + 2
				for i := 0; i < count && destPos < len(name) && destPos < MaxNameChars; i++ {
					out = append(out, uint16(name[destPos]))
					destPos++
				}
			}
		}
	}
	return out
}

func asciiOnly(name []byte) []uint16 {
	if len(name) > MaxNameChars {
		name = name[:MaxNameChars]
	}
	out := make([]uint16, len(name))
	for i, b := range name {
		out[i] = uint16(b)
	}
	return out
}

// utf16ToUTF8 converts a UTF-16LE code unit slice to a UTF-8 string using
// golang.org/x/text/encoding/unicode, the conversion path spec.md names as
// an external collaborator this package consumes rather than defines.
func utf16ToUTF8(units []uint16) (string, error) {
	raw := make([]byte, len(units)*2)
	for i, u := range units {
		raw[2*i] = byte(u)
		raw[2*i+1] = byte(u >> 8)
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
