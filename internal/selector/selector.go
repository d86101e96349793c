// Package selector implements spec.md component 4.E: ranking RAR3
// candidate file entries and keeping the single best one for the final
// hash record. Policy precedence follows spec.md 4.E rules 1-3 verbatim;
// spec.md's own Open Questions section warns against re-deriving this from
// first principles, so this is a direct transliteration of the rule table,
// not a simplification of it.
package selector

// StoredMethod is RAR3's "no compression" method byte; anything greater is
// some flavor of compression (fastest .. best).
const StoredMethod = 0x30

// Candidate is one encrypted RAR3 file entry as spec.md §3 describes it.
type Candidate struct {
	PackedSize   int64
	UnpackedSize int64
	Method       byte
	Salt         []byte
	CRC          uint32
	Offset       int64
	Filename     string
	Ciphertext   []byte
}

// Selector keeps the single best candidate seen so far, per spec.md 4.E.
type Selector struct {
	best *Candidate
}

// New returns an empty selector.
func New() *Selector { return &Selector{} }

// Offer evaluates c against the incumbent best candidate and, if c wins,
// replaces it. Swapping replaces the incumbent entirely (salt, CRC, sizes,
// method, buffered ciphertext), per spec.md 4.E rule 4.
func (s *Selector) Offer(c Candidate) {
	if s.best == nil {
		cc := c
		s.best = &cc
		return
	}

	if c.PackedSize < s.best.PackedSize {
		threshold := admissionThreshold(s.best.Method)
		if s.best.UnpackedSize >= threshold && c.UnpackedSize < threshold {
			// Incumbent is already safely decodable; a smaller-but-too-small
			// candidate would inflate false positives later, so keep B.
			return
		}
		cc := c
		s.best = &cc
		return
	}

	if c.PackedSize == s.best.PackedSize {
		if c.UnpackedSize >= 8 && s.best.UnpackedSize < 8 {
			cc := c
			s.best = &cc
		}
		return
	}

	// c.PackedSize > s.best.PackedSize: keep the incumbent.
}

// Best returns the winning candidate, or nil if none was ever admitted.
func (s *Selector) Best() *Candidate { return s.best }

// admissionThreshold is the "safely decodable" unpacked-size floor used
// when deciding whether to suppress a swap to a smaller-packed candidate.
func admissionThreshold(method byte) int64 {
	if method > StoredMethod {
		return 4
	}
	return 1
}

// WarnThreshold is the post-selection diagnostic floor. spec.md's Open
// Questions section explicitly calls out that this (5, for compressed
// methods) differs from the admission threshold (4) and that both must be
// preserved verbatim rather than unified.
func WarnThreshold(method byte) int64 {
	if method > StoredMethod {
		return 5
	}
	return 1
}

// BelowWarnThreshold reports whether the given candidate's unpacked size is
// small enough to warrant the "selected candidate has a very small
// plaintext" advisory from spec.md §7, while the record is still emitted.
func BelowWarnThreshold(c *Candidate) bool {
	return c.UnpackedSize < WarnThreshold(c.Method)
}
