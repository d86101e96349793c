package selector

import "testing"

func TestOfferFirstAlwaysAdmits(t *testing.T) {
	s := New()
	s.Offer(Candidate{PackedSize: 100, UnpackedSize: 1, Method: StoredMethod})
	if s.Best() == nil {
		t.Fatal("expected a candidate after first Offer")
	}
}

func TestSmallerPackedPreferredWhenSafe(t *testing.T) {
	s := New()
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 20, Method: StoredMethod})
	s.Offer(Candidate{PackedSize: 500, UnpackedSize: 10, Method: StoredMethod})
	if s.Best().PackedSize != 500 {
		t.Fatalf("expected smaller packed size to win, got %d", s.Best().PackedSize)
	}
}

func TestSmallerPackedSuppressedWhenUnsafe(t *testing.T) {
	// Incumbent is compressed with unpacked=10 (>=4, safely decodable).
	// Challenger has smaller packed size but unpacked=2 (<4) -> suppressed.
	s := New()
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 10, Method: 0x31})
	s.Offer(Candidate{PackedSize: 500, UnpackedSize: 2, Method: 0x31})
	if s.Best().PackedSize != 1000 {
		t.Fatalf("expected incumbent retained, got packed=%d", s.Best().PackedSize)
	}
}

func TestTiePackedPrefersUnpackedAtLeast8(t *testing.T) {
	s := New()
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 5, Method: StoredMethod})
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 20, Method: StoredMethod})
	if s.Best().UnpackedSize != 20 {
		t.Fatalf("expected second (>=8) candidate to win tie, got unpacked=%d", s.Best().UnpackedSize)
	}
}

func TestTiePackedBothAbove8KeepsIncumbent(t *testing.T) {
	s := New()
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 9, Method: StoredMethod})
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 50, Method: StoredMethod})
	if s.Best().UnpackedSize != 9 {
		t.Fatalf("expected incumbent (already >=8) retained, got unpacked=%d", s.Best().UnpackedSize)
	}
}

func TestTiePackedBothBelow8KeepsIncumbent(t *testing.T) {
	s := New()
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 3, Method: StoredMethod})
	s.Offer(Candidate{PackedSize: 1000, UnpackedSize: 6, Method: StoredMethod})
	if s.Best().UnpackedSize != 3 {
		t.Fatalf("expected incumbent retained when both <8, got unpacked=%d", s.Best().UnpackedSize)
	}
}

func TestLargerPackedNeverWins(t *testing.T) {
	s := New()
	s.Offer(Candidate{PackedSize: 500, UnpackedSize: 20, Method: StoredMethod})
	s.Offer(Candidate{PackedSize: 2000, UnpackedSize: 20, Method: StoredMethod})
	if s.Best().PackedSize != 500 {
		t.Fatalf("expected smaller-packed incumbent retained, got %d", s.Best().PackedSize)
	}
}

func TestWarnThresholdAsymmetry(t *testing.T) {
	if admissionThreshold(0x31) == WarnThreshold(0x31) {
		t.Fatalf("admission (4) and warn (5) thresholds for compressed methods must differ")
	}
	if !BelowWarnThreshold(&Candidate{UnpackedSize: 4, Method: 0x31}) {
		t.Fatalf("unpacked=4 compressed should be below the 5-byte warn threshold")
	}
	if BelowWarnThreshold(&Candidate{UnpackedSize: 5, Method: 0x31}) {
		t.Fatalf("unpacked=5 compressed should meet the warn threshold")
	}
}
