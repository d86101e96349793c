// Package hashrecord implements spec.md component 4.G: assembling the
// final single-line textual hash record in either RAR3 or RAR5 syntax
// (spec.md §6). Byte fields are lowercase base-16; RAR5 fields use
// base-64. Both are treated as external primitive collaborators the core
// merely consumes (spec.md §1: "base-16 and base-64 formatters (pure
// functions)"), so this package reaches for the standard library rather
// than a third-party codec.
package hashrecord

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Mode0 builds the RAR3 whole-header-encryption ("-hp") record:
// <base>:$RAR3$*0*<salt-hex:16>*<ciphertext-hex:32>:0::::<path>
func Mode0(base string, salt [8]byte, knownPlaintextBlock [16]byte, path string) string {
	return fmt.Sprintf("%s:$RAR3$*0*%s*%s:0::::%s",
		base, hex.EncodeToString(salt[:]), hex.EncodeToString(knownPlaintextBlock[:]), path)
}

// Mode1Params carries the fields of a per-file RAR3 encryption record.
type Mode1Params struct {
	Base        string
	Salt        [8]byte
	CRC32       uint32
	PackedSize  int64
	UnpackedSize int64
	Ciphertext  []byte
	Method      byte
	Filenames   []string
}

// Mode1 builds the RAR3 per-file-encryption ("-p") record:
// <base>:$RAR3$*1*<salt-hex:16>*<crc-hex:8>*<pack>*<unp>*1*<ciphertext-hex>*<method-hex:2>:1::<accumulated-filenames>
func Mode1(p Mode1Params) string {
	crcBytes := []byte{byte(p.CRC32), byte(p.CRC32 >> 8), byte(p.CRC32 >> 16), byte(p.CRC32 >> 24)}
	return fmt.Sprintf("%s:$RAR3$*1*%s*%s*%d*%d*1*%s*%02x:1::%s",
		p.Base,
		hex.EncodeToString(p.Salt[:]),
		hex.EncodeToString(crcBytes),
		p.PackedSize,
		p.UnpackedSize,
		hex.EncodeToString(p.Ciphertext),
		p.Method,
		strings.Join(p.Filenames, " "),
	)
}

// Rar5Params carries the fields of a RAR5 record.
type Rar5Params struct {
	Base        string
	Salt        [16]byte
	Log2Count   byte
	IV          [16]byte
	PasswordCheck [12]byte
}

// Rar5 builds: <base>:$rar5$16$<salt-base64>$<log2-count>$<iv-base64>$12$<pswcheck-base64>
func Rar5(p Rar5Params) string {
	return fmt.Sprintf("%s:$rar5$16$%s$%d$%s$12$%s",
		p.Base,
		base64.StdEncoding.EncodeToString(p.Salt[:]),
		p.Log2Count,
		base64.StdEncoding.EncodeToString(p.IV[:]),
		base64.StdEncoding.EncodeToString(p.PasswordCheck[:]),
	)
}
