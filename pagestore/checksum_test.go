package pagestore

import "testing"

func TestChecksumKnownVector(t *testing.T) {
	got := checksum([]byte("123456789"))
	const want = 0xCBF43926
	if got != want {
		t.Fatalf("checksum(%q) = %#x, want %#x", "123456789", got, want)
	}
}

func TestChecksumRangeMatchesFullBuffer(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	padded := append(append([]byte{}, data...), 0xAA, 0xBB, 0xCC)

	full := checksum(data)
	ranged := checksumRange(padded, 0, len(data))
	if full != ranged {
		t.Fatalf("checksumRange = %#x, want %#x", ranged, full)
	}
}
