package rar2hash

import "errors"

// Sentinel error kinds. classify returns ErrNotArchive and
// ErrUnsupportedVersion directly, so callers can match them with errors.Is.
// Errors from the RAR3 and RAR5 parsers do not wrap these values: they carry
// the kind only as message text ("rar2hash: malformed RAR structure: ...",
// "rar2hash: unsupported RAR version: ...", "rar2hash: io error: ...").
var (
	// ErrNotArchive means the magic bytes matched neither RAR3 nor RAR5,
	// even after an SFX-stub scan.
	ErrNotArchive = errors.New("not a RAR file")

	// ErrUnsupportedVersion is returned for pre-1.5 RAR magic. An
	// unrecognized RAR5 crypt-version or iteration count is reported by the
	// RAR5 parser with the same wording but does not wrap this value. RAR3
	// 64-bit sizes are always read into int64 and never rejected.
	ErrUnsupportedVersion = errors.New("unsupported RAR version")

	// ErrStructural names the structural kind: invalid tags, missing
	// required flags, malformed varints, and extra-area underflow. The
	// parsers report these with the same wording; no code path returns
	// this value itself.
	ErrStructural = errors.New("malformed RAR structure")

	// ErrNoCandidate means parsing completed but no encrypted, non-solid,
	// non-directory RAR3 file entry was ever admitted by the selector. Its
	// message is logged through the diagnostics sink; ProcessArchive then
	// returns no lines and a nil error.
	ErrNoCandidate = errors.New("did not find a valid encrypted candidate")
)
