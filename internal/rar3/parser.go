// Package rar3 implements spec.md component 4.C: the RAR3 state machine
// walking the marker, archive header, and successive file headers, feeding
// each encrypted candidate to the selector (4.E).
package rar3

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/javi11/rar2hash/internal/bytesio"
	"github.com/javi11/rar2hash/internal/diag"
	"github.com/javi11/rar2hash/internal/rarname"
	"github.com/javi11/rar2hash/internal/selector"
)

const (
	archiveHeaderType = 0x73
	fileHeaderType    = 0x74
	commentHeaderType = 0x7a

	flagHeadersEncrypted = 0x0080
	flagEncryption        = 0x0004
	flagSolid             = 0x0010
	flag64BitExt          = 0x0100
	flagUnicodeName       = 0x0200
	flagSalt              = 0x0400
	flagExtTime           = 0x1000
	flagLongBlock         = 0x8000

	dictSizeMask  = 0xE0
	dictSizeShift = 5
	directoryBits = 7

	archiveHeaderSize = 13

	// ciphertextSampleSize bounds how many bytes of a candidate's encrypted
	// body are buffered for the final hash record; more than this does not
	// help an offline password attack and only grows the output line.
	ciphertextSampleSize = 16

	// maxFilenameAccum bounds the accumulated-filenames line (spec.md §6:
	// "bounded by a fixed line buffer").
	maxFilenameAccum = 4096
)

var errEndOfHeaders = errors.New("rar3: end of file-header chain")

// errIO classifies a short read or seek failure as this tool's "io" error
// kind (spec.md §7); wrapped with %w so callers can errors.Is against it.
var errIO = errors.New("rar2hash: io error")

// Mode0Hash holds the tail-of-file known-plaintext material used when the
// whole archive header is encrypted ("-hp" mode).
type Mode0Hash struct {
	Salt           [8]byte
	KnownPlaintext [16]byte
}

// Outcome is everything Parse can hand back: either the mode-0 tail material,
// or (in mode-1) the selector's winning candidate plus the filenames seen
// while scanning.
type Outcome struct {
	Mode0     *Mode0Hash
	Candidate *selector.Candidate
	Filenames []string
}

// Parse walks an RAR3 archive. r must be positioned immediately after the
// 7-byte magic signature.
func Parse(r io.ReadSeeker, sink *diag.Sink) (*Outcome, error) {
	br := bytesio.New(r)

	headersEncrypted, err := readArchiveHeader(br)
	if err != nil {
		return nil, err
	}

	if headersEncrypted {
		m0, err := readMode0Tail(r)
		if err != nil {
			return nil, err
		}
		return &Outcome{Mode0: m0}, nil
	}

	return parseFileHeaders(r, br, sink)
}

// readArchiveHeader consumes the 13-byte archive header (and any trailing
// comment region) and reports whether the headers-encrypted flag is set.
func readArchiveHeader(br *bytesio.Reader) (bool, error) {
	br.ResetConsumed()

	if _, err := br.ReadBytes(2); err != nil { // HEAD_CRC
		return false, fmt.Errorf("%w: archive header CRC: %v", errIO, err)
	}
	typ, err := br.ReadU8()
	if err != nil {
		return false, fmt.Errorf("%w: archive header type: %v", errIO, err)
	}
	if typ != archiveHeaderType {
		return false, fmt.Errorf("rar2hash: malformed RAR structure: archive header type 0x%02x != 0x%02x", typ, archiveHeaderType)
	}
	flags, err := br.ReadU16LE()
	if err != nil {
		return false, fmt.Errorf("%w: archive header flags: %v", errIO, err)
	}
	headSize, err := br.ReadU16LE()
	if err != nil {
		return false, fmt.Errorf("%w: archive header size: %v", errIO, err)
	}
	if int(headSize) < archiveHeaderSize {
		return false, fmt.Errorf("rar2hash: malformed RAR structure: archive header size %d < %d", headSize, archiveHeaderSize)
	}
	// Consume the rest of the fixed 13 bytes (reserved words), then any
	// trailing comment region the declared head size adds beyond that.
	remaining := archiveHeaderSize - int(br.Consumed())
	if remaining > 0 {
		if _, err := br.ReadBytes(remaining); err != nil {
			return false, fmt.Errorf("%w: archive header reserved fields: %v", errIO, err)
		}
	}
	if extra := int(headSize) - int(br.Consumed()); extra > 0 {
		if _, err := br.ReadBytes(extra); err != nil {
			return false, fmt.Errorf("%w: archive header comment region: %v", errIO, err)
		}
	}

	return flags&flagHeadersEncrypted != 0, nil
}

func readMode0Tail(r io.ReadSeeker) (*Mode0Hash, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("rar2hash: io error: seek to end: %w", err)
	}
	if size < 24 {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: archive shorter than 24-byte mode-0 tail")
	}
	if _, err := r.Seek(size-24, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rar2hash: io error: seek to mode-0 tail: %w", err)
	}
	br := bytesio.New(r)
	saltB, err := br.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("rar2hash: io error: read mode-0 salt: %w", err)
	}
	plainB, err := br.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("rar2hash: io error: read mode-0 known-plaintext block: %w", err)
	}
	var m Mode0Hash
	copy(m.Salt[:], saltB)
	copy(m.KnownPlaintext[:], plainB)
	return &m, nil
}

// parseFileHeaders drives the mode-1 loop: every file/comment header until a
// tag that ends the chain, feeding each qualifying candidate to a selector.
func parseFileHeaders(r io.ReadSeeker, br *bytesio.Reader, sink *diag.Sink) (*Outcome, error) {
	sel := selector.New()
	var filenames []string
	filenameBudget := maxFilenameAccum

	for {
		headerStart, err := br.Pos()
		if err != nil {
			return nil, fmt.Errorf("rar2hash: io error: %w", err)
		}

		name, candidate, skipReason, nextHeader, err := readOneFileHeader(br, headerStart)
		if errors.Is(err, errEndOfHeaders) {
			break
		}
		if errors.Is(err, errSkippedComment) {
			if _, serr := r.Seek(nextHeader, io.SeekStart); serr != nil {
				return nil, fmt.Errorf("rar2hash: io error: seek past comment header: %w", serr)
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		if name != "" && filenameBudget > 0 {
			if len(name) > filenameBudget {
				name = name[:filenameBudget]
			}
			filenames = append(filenames, name)
			filenameBudget -= len(name)
		}

		if candidate != nil {
			if sink != nil {
				sink.Info("candidate", "file", name, "method", methodName(candidate.Method), "packed", candidate.PackedSize)
			}
			sel.Offer(*candidate)
		} else if skipReason != "" && sink != nil {
			sink.Skip(skipReason, name)
		}

		if _, serr := r.Seek(nextHeader, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rar2hash: io error: seek to next header: %w", serr)
		}
	}

	return &Outcome{Candidate: sel.Best(), Filenames: filenames}, nil
}

var errSkippedComment = errors.New("rar3: comment header, skip")

// readOneFileHeader reads a single file or comment header starting at
// headerStart (which br is already positioned at) and returns the decoded
// filename, a candidate if this entry qualifies for the selector (nil
// otherwise), and the absolute offset of the next header.
func readOneFileHeader(br *bytesio.Reader, headerStart int64) (filename string, candidate *selector.Candidate, skipReason string, nextHeader int64, err error) {
	br.ResetConsumed()

	if _, err = br.ReadBytes(2); err != nil { // HEAD_CRC
		if errors.Is(err, bytesio.ErrShortRead) {
			return "", nil, "", 0, errEndOfHeaders // natural end of stream
		}
		return "", nil, "", 0, fmt.Errorf("%w: file header CRC: %v", errIO, err)
	}
	typ, err := br.ReadU8()
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: file header type: %v", errIO, err)
	}

	flags, err := br.ReadU16LE()
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: file header flags: %v", errIO, err)
	}
	headSize, err := br.ReadU16LE()
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: file header size: %v", errIO, err)
	}

	if typ == commentHeaderType {
		return "", nil, "", headerStart + int64(headSize), errSkippedComment
	}
	if typ != fileHeaderType {
		return "", nil, "", 0, errEndOfHeaders
	}
	if flags&flagLongBlock == 0 {
		return "", nil, "", 0, fmt.Errorf("rar2hash: malformed RAR structure: file header missing required 0x8000 flag")
	}

	packLow, err := br.ReadU32LE()
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: pack size: %v", errIO, err)
	}
	unpLow, err := br.ReadU32LE()
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: unpack size: %v", errIO, err)
	}
	if _, err = br.ReadBytes(1); err != nil { // HOST_OS
		return "", nil, "", 0, fmt.Errorf("%w: host OS: %v", errIO, err)
	}
	crcB, err := br.ReadBytes(4)
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: file CRC: %v", errIO, err)
	}
	if _, err = br.ReadBytes(4); err != nil { // FTIME
		return "", nil, "", 0, fmt.Errorf("%w: ftime: %v", errIO, err)
	}
	if _, err = br.ReadBytes(1); err != nil { // UNP_VER
		return "", nil, "", 0, fmt.Errorf("%w: unpack version: %v", errIO, err)
	}
	method, err := br.ReadU8()
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: method: %v", errIO, err)
	}
	nameSize, err := br.ReadU16LE()
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: name size: %v", errIO, err)
	}
	if _, err = br.ReadBytes(4); err != nil { // ATTR
		return "", nil, "", 0, fmt.Errorf("%w: attr: %v", errIO, err)
	}

	packSize := int64(packLow)
	unpSize := int64(unpLow)
	if flags&flag64BitExt != 0 {
		packHigh, herr := br.ReadU32LE()
		if herr != nil {
			return "", nil, "", 0, fmt.Errorf("%w: high pack size: %v", errIO, herr)
		}
		unpHigh, herr := br.ReadU32LE()
		if herr != nil {
			return "", nil, "", 0, fmt.Errorf("%w: high unpack size: %v", errIO, herr)
		}
		packSize = int64(packHigh)<<32 | int64(packLow)
		unpSize = int64(unpHigh)<<32 | int64(unpLow)
	}

	nameBuf, err := br.ReadBytes(int(nameSize))
	if err != nil {
		return "", nil, "", 0, fmt.Errorf("%w: filename: %v", errIO, err)
	}
	if flags&flagUnicodeName != 0 {
		filename, err = decodePackedName(nameBuf)
		if err != nil {
			return "", nil, "", 0, fmt.Errorf("rar2hash: malformed RAR structure: filename decode: %w", err)
		}
	} else {
		filename = string(bytes.TrimRight(nameBuf, "\x00"))
	}

	var salt []byte
	if flags&flagSalt != 0 {
		salt, err = br.ReadBytes(8)
		if err != nil {
			return "", nil, "", 0, fmt.Errorf("%w: salt: %v", errIO, err)
		}
	}

	if flags&flagExtTime != 0 {
		remaining := int(headSize) - int(br.Consumed())
		if remaining < 0 {
			return "", nil, "", 0, fmt.Errorf("rar2hash: malformed RAR structure: extended-time region underflows header size")
		}
		if remaining > 0 {
			if _, err = br.ReadBytes(remaining); err != nil {
				return "", nil, "", 0, fmt.Errorf("%w: extended-time region: %v", errIO, err)
			}
		}
	}

	nextHeader = headerStart + int64(headSize) + packSize

	isSolid := flags&flagSolid != 0
	isDirectory := (flags&dictSizeMask)>>dictSizeShift == directoryBits
	isEncrypted := flags&flagEncryption != 0

	switch {
	case isSolid:
		return filename, nil, "solid entry", nextHeader, nil
	case isDirectory:
		return filename, nil, "directory entry", nextHeader, nil
	case !isEncrypted:
		return filename, nil, "unencrypted entry", nextHeader, nil
	}

	cipherLen := packSize
	if cipherLen > ciphertextSampleSize {
		cipherLen = ciphertextSampleSize
	}
	var ciphertext []byte
	if cipherLen > 0 {
		ciphertext, err = br.ReadBytes(int(cipherLen))
		if err != nil {
			return "", nil, "", 0, fmt.Errorf("%w: ciphertext sample: %v", errIO, err)
		}
	}

	return filename, &selector.Candidate{
		PackedSize:   packSize,
		UnpackedSize: unpSize,
		Method:       method,
		Salt:         salt,
		CRC:          leUint32(crcB),
		Offset:       headerStart,
		Filename:     filename,
		Ciphertext:   ciphertext,
	}, "", nextHeader, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// decodePackedName splits a RAR3 unicode-flagged name field at its first NUL
// (the ASCIIZ OEM name) and hands the remainder to the filename decoder.
func decodePackedName(nameBuf []byte) (string, error) {
	nul := bytes.IndexByte(nameBuf, 0)
	if nul < 0 {
		return string(nameBuf), nil
	}
	ascii := nameBuf[:nul]
	packed := nameBuf[nul+1:]
	if len(packed) == 0 {
		return string(ascii), nil
	}
	return rarname.Decode(ascii, packed)
}
