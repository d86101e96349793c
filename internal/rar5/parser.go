// Package rar5 implements spec.md component 4.D: the RAR5 block-walking
// state machine (main/crypt/file/service/end-of-archive) and its TLV
// "extra area" processor (4.D.i), emitting one Record per crypt header with
// a password-check and one per per-file crypt extra-record.
package rar5

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/javi11/rar2hash/internal/bytesio"
	"github.com/javi11/rar2hash/internal/diag"
)

const (
	blockTypeMain          = 1
	blockTypeFile          = 2
	blockTypeService       = 3
	blockTypeCrypt         = 4
	blockTypeEndOfArchive  = 5

	blockFlagHasExtraArea = 0x0001
	blockFlagHasDataSize  = 0x0002

	// mainFlagVolNumber mirrors RAR5's MHFL_VOLNUMBER bit; spec.md names the
	// behavior ("if volume-number flag set, read volume number") without
	// pinning the bit position, so this follows the real format.
	mainFlagVolNumber = 0x0002

	fileFlagHasUTime = 0x0002
	fileFlagHasCRC32 = 0x0004

	cryptFlagPswCheck = 0x0001

	extraFieldTypeCrypt = 1

	maxCryptVersion = 0
	maxLog2Count    = 24
)

var errIO = errors.New("rar2hash: io error")

// Record is one RAR5 hash-record's worth of material: the key-derivation
// salt and iteration exponent, the IV that keys a specific encrypted region,
// and the password-check token, per spec.md §6's RAR5 output syntax.
type Record struct {
	Salt          [16]byte
	Log2Count     byte
	IV            [16]byte
	PasswordCheck [12]byte
}

type cryptState struct {
	salt      [16]byte
	log2Count byte
	pswCheck  [12]byte
}

// Parse walks an RAR5 archive. r must be positioned immediately after the
// 8-byte magic signature. It returns every record encountered, in archive
// order: at most one from an encrypted-headers crypt block (which, once
// latched, always terminates the walk at the following header's IV), plus
// one per per-file extra-area crypt record.
func Parse(r io.ReadSeeker, sink *diag.Sink) ([]Record, error) {
	br := bytesio.New(r)
	var records []Record
	var pending *cryptState

	for {
		if pending != nil {
			ivB, err := br.ReadBytes(16)
			if err != nil {
				return nil, fmt.Errorf("%w: encrypted-headers IV: %v", errIO, err)
			}
			rec := Record{Salt: pending.salt, Log2Count: pending.log2Count, PasswordCheck: pending.pswCheck}
			copy(rec.IV[:], ivB)
			records = append(records, rec)
			return records, nil
		}

		hdrStart, err := br.Pos()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errIO, err)
		}

		if _, err := br.ReadBytes(4); err != nil { // header CRC
			if errors.Is(err, bytesio.ErrShortRead) {
				return records, nil // natural end of stream
			}
			return nil, fmt.Errorf("%w: header CRC: %v", errIO, err)
		}
		blockSize, widthBS, err := br.ReadVarint()
		if err != nil {
			return nil, fmt.Errorf("rar2hash: malformed RAR structure: block size varint: %w", err)
		}
		contentStart, err := br.Pos()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errIO, err)
		}
		contentEnd := contentStart + int64(blockSize)

		headerType, err := br.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("%w: header type: %v", errIO, err)
		}
		flags, _, err := br.ReadVarint()
		if err != nil {
			return nil, fmt.Errorf("rar2hash: malformed RAR structure: header flags varint: %w", err)
		}
		var extraSize uint64
		if flags&blockFlagHasExtraArea != 0 {
			extraSize, _, err = br.ReadVarint()
			if err != nil {
				return nil, fmt.Errorf("rar2hash: malformed RAR structure: extra-area size varint: %w", err)
			}
		}
		var dataSize uint64
		if flags&blockFlagHasDataSize != 0 {
			dataSize, _, err = br.ReadVarint()
			if err != nil {
				return nil, fmt.Errorf("rar2hash: malformed RAR structure: data size varint: %w", err)
			}
		}

		switch headerType {
		case blockTypeCrypt:
			cs, err := readCryptBlock(br)
			if err != nil {
				return nil, err
			}
			if cs != nil {
				pending = cs
				if sink != nil {
					sink.Info("crypt header latched encrypted-headers state", "log2count", cs.log2Count)
				}
			}

		case blockTypeMain:
			archiveFlags, _, err := br.ReadVarint()
			if err != nil {
				return nil, fmt.Errorf("rar2hash: malformed RAR structure: main header flags: %w", err)
			}
			if archiveFlags&mainFlagVolNumber != 0 {
				if _, _, err := br.ReadVarint(); err != nil {
					return nil, fmt.Errorf("rar2hash: malformed RAR structure: volume number: %w", err)
				}
			}

		case blockTypeFile, blockTypeService:
			rec, err := readFileOrServiceBlock(br, contentEnd, extraSize)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				records = append(records, *rec)
			}

		case blockTypeEndOfArchive:
			return records, nil

		default:
			// Unknown block type: opaque, skip via the footprint math below.
		}

		nextPos := hdrStart + 4 + int64(widthBS) + int64(blockSize) + int64(dataSize)
		if err := br.SeekAbs(nextPos); err != nil {
			return nil, fmt.Errorf("%w: seek to next block: %v", errIO, err)
		}
	}
}

func readCryptBlock(br *bytesio.Reader) (*cryptState, error) {
	cryptVersion, _, err := br.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: crypt version: %w", err)
	}
	if cryptVersion > maxCryptVersion {
		return nil, fmt.Errorf("rar2hash: unsupported RAR version: crypt version %d", cryptVersion)
	}
	encFlags, _, err := br.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: crypt flags: %w", err)
	}
	log2Count, err := br.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("%w: crypt log2(iterations): %v", errIO, err)
	}
	if log2Count > maxLog2Count {
		return nil, fmt.Errorf("rar2hash: unsupported RAR version: log2(iterations) %d > %d", log2Count, maxLog2Count)
	}
	saltB, err := br.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("%w: crypt salt: %v", errIO, err)
	}

	if encFlags&cryptFlagPswCheck == 0 {
		return nil, nil
	}

	pswB, err := br.ReadBytes(12)
	if err != nil {
		return nil, fmt.Errorf("%w: password-check: %v", errIO, err)
	}
	checksum, err := br.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("%w: password-check checksum: %v", errIO, err)
	}
	sum := sha256.Sum256(pswB)
	if !bytes.Equal(sum[:4], checksum) {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: password-check checksum mismatch")
	}

	cs := &cryptState{log2Count: log2Count}
	copy(cs.salt[:], saltB)
	copy(cs.pswCheck[:], pswB)
	return cs, nil
}

// readFileOrServiceBlock reads a file/service header's basic fields up to
// and including the filename, then processes the extra area (if any) for a
// per-file crypt record. contentEnd bounds the whole header (fields plus
// extra area); extraSize is the declared size of the trailing TLV region.
func readFileOrServiceBlock(br *bytesio.Reader, contentEnd int64, extraSize uint64) (*Record, error) {
	fileFlags, _, err := br.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: file flags: %w", err)
	}
	if _, _, err := br.ReadVarint(); err != nil { // unpacked size
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: unpacked size: %w", err)
	}
	if _, _, err := br.ReadVarint(); err != nil { // attributes
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: attributes: %w", err)
	}
	if fileFlags&fileFlagHasUTime != 0 {
		if _, err := br.ReadBytes(4); err != nil {
			return nil, fmt.Errorf("%w: utime: %v", errIO, err)
		}
	}
	if fileFlags&fileFlagHasCRC32 != 0 {
		if _, err := br.ReadBytes(4); err != nil {
			return nil, fmt.Errorf("%w: crc32: %v", errIO, err)
		}
	}
	if _, _, err := br.ReadVarint(); err != nil { // compression info
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: compression info: %w", err)
	}
	if _, _, err := br.ReadVarint(); err != nil { // host OS
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: host OS: %w", err)
	}
	nameLen, _, err := br.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: name length: %w", err)
	}
	if _, err := br.ReadBytes(int(nameLen)); err != nil {
		return nil, fmt.Errorf("%w: filename: %v", errIO, err)
	}

	if extraSize == 0 {
		return nil, nil
	}

	extraStart := contentEnd - int64(extraSize)
	if err := br.SeekAbs(extraStart); err != nil {
		return nil, fmt.Errorf("%w: seek to extra area: %v", errIO, err)
	}
	return processExtraArea(br, extraSize)
}

// processExtraArea iterates TLV records (4.D.i) until extraSize bytes are
// exhausted, returning the first per-file crypt record found (and halting
// further processing of this block's extra area, per spec.md 4.D.i).
func processExtraArea(br *bytesio.Reader, extraSize uint64) (*Record, error) {
	bytesLeft := int64(extraSize)

	for bytesLeft > 0 {
		fieldSize, sizeWidth, err := br.ReadVarint()
		if err != nil {
			return nil, fmt.Errorf("rar2hash: malformed RAR structure: extra-area field size: %w", err)
		}
		recordWidth := int64(sizeWidth) + int64(fieldSize)
		if recordWidth > bytesLeft {
			return nil, fmt.Errorf("rar2hash: malformed RAR structure: extra-area size underflow")
		}

		fieldType, typeWidth, err := br.ReadVarint()
		if err != nil {
			return nil, fmt.Errorf("rar2hash: malformed RAR structure: extra-area field type: %w", err)
		}

		if fieldType == extraFieldTypeCrypt {
			rec, err := readCryptExtraRecord(br)
			if err != nil {
				return nil, err
			}
			return rec, nil
		}

		// Unknown or irrelevant field: skip its remaining payload.
		payloadLen := int64(fieldSize) - int64(typeWidth)
		if payloadLen > 0 {
			if _, err := br.ReadBytes(int(payloadLen)); err != nil {
				return nil, fmt.Errorf("%w: extra-area field payload: %v", errIO, err)
			}
		}
		bytesLeft -= recordWidth
	}

	return nil, nil
}

func readCryptExtraRecord(br *bytesio.Reader) (*Record, error) {
	if _, _, err := br.ReadVarint(); err != nil { // enc-version
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: extra-area enc-version: %w", err)
	}
	flags, _, err := br.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: extra-area crypt flags: %w", err)
	}
	log2Count, err := br.ReadU8()
	if err != nil {
		return nil, fmt.Errorf("%w: extra-area log2(iterations): %v", errIO, err)
	}
	if log2Count > maxLog2Count {
		return nil, fmt.Errorf("rar2hash: unsupported RAR version: log2(iterations) %d > %d", log2Count, maxLog2Count)
	}
	saltB, err := br.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("%w: extra-area salt: %v", errIO, err)
	}
	ivB, err := br.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("%w: extra-area IV: %v", errIO, err)
	}
	pswB, err := br.ReadBytes(12)
	if err != nil {
		return nil, fmt.Errorf("%w: extra-area password-check: %v", errIO, err)
	}

	if flags&cryptFlagPswCheck == 0 {
		return nil, fmt.Errorf("rar2hash: malformed RAR structure: file encrypted without a password-check value")
	}

	var rec Record
	rec.Log2Count = log2Count
	copy(rec.Salt[:], saltB)
	copy(rec.IV[:], ivB)
	copy(rec.PasswordCheck[:], pswB)
	return &rec, nil
}
