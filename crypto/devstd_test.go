package crypto

import "testing"

func TestSha3Hasher_Hash1DeterministicNonZero(t *testing.T) {
	h := Sha3Hasher{}
	w := Word{1, 2, 3, 4}
	got := h.Hash1(w)
	got2 := h.Hash1(w)
	if got != got2 {
		t.Fatalf("Hash1 not deterministic: %v != %v", got, got2)
	}
	if got.IsZero() {
		t.Fatalf("Hash1 produced zero word for non-zero input")
	}
}

func TestSha3Hasher_Hash2OrderMatters(t *testing.T) {
	h := Sha3Hasher{}
	a := Word{1, 0, 0, 0}
	b := Word{2, 0, 0, 0}
	if h.Hash2(a, b) == h.Hash2(b, a) {
		t.Fatalf("Hash2(a,b) == Hash2(b,a); domain composition must be order-sensitive")
	}
}

func TestSha3Hasher_HashElementsEmpty(t *testing.T) {
	h := Sha3Hasher{}
	got := h.HashElements(nil)
	if got.IsZero() {
		t.Fatalf("HashElements(nil) produced the zero word, which collides with absence markers")
	}
}
