package asset

import (
	"bytes"
	"testing"

	"rollup.dev/kernel/crypto"
)

func TestNewFungible_RejectsOverMax(t *testing.T) {
	faucet := crypto.Word{1, 2, 3, 4}
	if _, err := NewFungible(faucet, MaxAmount+1); err == nil {
		t.Fatalf("expected error for amount exceeding MaxAmount")
	}
	f, err := NewFungible(faucet, MaxAmount)
	if err != nil {
		t.Fatalf("NewFungible at MaxAmount: %v", err)
	}
	if f.Amount != MaxAmount {
		t.Fatalf("Amount = %d, want %d", f.Amount, MaxAmount)
	}
}

func TestFungible_VaultKeyIsFaucet(t *testing.T) {
	faucet := crypto.Word{7, 8, 9, 10}
	f, err := NewFungible(faucet, 100)
	if err != nil {
		t.Fatalf("NewFungible: %v", err)
	}
	h := crypto.Sha3Hasher{}
	if f.VaultKey(h) != faucet {
		t.Fatalf("VaultKey() = %v, want %v", f.VaultKey(h), faucet)
	}
	if f.Issuer() != faucet {
		t.Fatalf("Issuer() = %v, want %v", f.Issuer(), faucet)
	}
}

func TestFungible_EncodeCarriesAmount(t *testing.T) {
	faucet := crypto.Word{1, 2, 3, 4}
	f, err := NewFungible(faucet, 42)
	if err != nil {
		t.Fatalf("NewFungible: %v", err)
	}
	enc := f.Encode()
	if enc[0] != crypto.NewFelt(42) {
		t.Fatalf("Encode()[0] = %v, want 42", enc[0])
	}
}

func TestNewNonFungible_RejectsEmptyPayload(t *testing.T) {
	faucet := crypto.Word{1}
	if _, err := NewNonFungible(faucet, nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestNonFungible_VaultKeyIsPayloadDigest(t *testing.T) {
	h := crypto.Sha3Hasher{}
	faucet := crypto.Word{1}
	payload := []byte("a unique collectible")
	n, err := NewNonFungible(faucet, payload)
	if err != nil {
		t.Fatalf("NewNonFungible: %v", err)
	}
	want := h.HashElements(bytesToFelts(payload))
	if n.VaultKey(h) != want {
		t.Fatalf("VaultKey() = %v, want %v", n.VaultKey(h), want)
	}
	if n.Issuer() != faucet {
		t.Fatalf("Issuer() = %v, want %v", n.Issuer(), faucet)
	}
}

func TestNonFungible_SamePayloadSameVaultKey(t *testing.T) {
	h := crypto.Sha3Hasher{}
	faucet := crypto.Word{2}
	payload := []byte("identical contents")
	a, _ := NewNonFungible(faucet, payload)
	b, _ := NewNonFungible(faucet, append([]byte(nil), payload...))
	if a.VaultKey(h) != b.VaultKey(h) {
		t.Fatalf("identical payloads produced different vault keys")
	}
}

func TestNonFungible_DifferentPayloadDifferentVaultKey(t *testing.T) {
	h := crypto.Sha3Hasher{}
	faucet := crypto.Word{2}
	a, _ := NewNonFungible(faucet, []byte("alpha"))
	b, _ := NewNonFungible(faucet, []byte("beta"))
	if a.VaultKey(h) == b.VaultKey(h) {
		t.Fatalf("distinct payloads collided on vault key")
	}
}

func TestEncodeForAdvice(t *testing.T) {
	h := crypto.Sha3Hasher{}
	faucet := crypto.Word{3, 3, 3, 3}

	f, _ := NewFungible(faucet, 9)
	if EncodeForAdvice(h, f) != f.Encode() {
		t.Fatalf("EncodeForAdvice(fungible) did not match Encode()")
	}

	n, _ := NewNonFungible(faucet, []byte("payload"))
	if EncodeForAdvice(h, n) != n.VaultKey(h) {
		t.Fatalf("EncodeForAdvice(non-fungible) did not match VaultKey()")
	}
}

func TestNewNonFungible_CopiesPayload(t *testing.T) {
	faucet := crypto.Word{1}
	payload := []byte("mutate me")
	n, err := NewNonFungible(faucet, payload)
	if err != nil {
		t.Fatalf("NewNonFungible: %v", err)
	}
	payload[0] = 'X'
	if bytes.Equal(n.Payload, payload) {
		t.Fatalf("NonFungible.Payload aliases the caller's slice")
	}
}

func TestBytesToFelts_RoundTripsLength(t *testing.T) {
	cases := []int{0, 1, 7, 8, 9, 16, 17}
	for _, n := range cases {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(i + 1)
		}
		felts := bytesToFelts(b)
		want := (n + 7) / 8
		if len(felts) != want {
			t.Fatalf("bytesToFelts(len=%d) produced %d felts, want %d", n, len(felts), want)
		}
	}
}
