// Package asset implements the fungible and non-fungible asset variants
// that flow through accounts and notes, their vault-key derivation, and
// their bounded arithmetic (spec.md sec.3 "AssetVault", sec.4.3).
//
// Grounded on consensus/vault.go and consensus/htlc.go: both parse a
// fixed-shape, tagged payload into a typed struct with per-field byte
// ranges and reject anything that doesn't fit a known shape exactly. Asset
// construction here follows the same discipline, generalized from a
// covenant payload to a value-carrying asset.
package asset

import (
	"rollup.dev/kernel/crypto"
)

// MaxAmount is the largest representable fungible amount (spec.md sec.3,
// sec.6): 2^63 - 1.
const MaxAmount uint64 = 1<<63 - 1

// FaucetID identifies the issuing account of an asset. It is the word
// packing of that account's AccountId (suffix, prefix, 0, 0); this package does
// not depend on the account package to avoid an import cycle, since
// account depends on asset for vault semantics.
type FaucetID = crypto.Word

// Asset is either a Fungible or a NonFungible value.
type Asset interface {
	// VaultKey is the key this asset occupies in an AssetVault (spec.md
	// sec.3: fungible assets keyed by faucet id; non-fungible assets keyed
	// by a digest of the asset payload).
	VaultKey(h crypto.Hasher) crypto.Word
	Issuer() FaucetID
}

// EncodeForAdvice returns a's advice-provider word representation, the
// shape the kernel pushes for "key‖asset" vault-leaf advice entries.
// Fungible assets encode inline as their amount alone (Fungible.Encode;
// the faucet id is carried by the vault key); non-fungible assets
// encode as the digest of their own payload, since the payload itself
// travels alongside as a separate advice-map entry.
func EncodeForAdvice(h crypto.Hasher, a Asset) crypto.Word {
	switch v := a.(type) {
	case Fungible:
		return v.Encode()
	case NonFungible:
		return v.VaultKey(h)
	default:
		return crypto.Zero
	}
}

// Fungible is a quantity of a single fungible asset type, keyed uniquely
// per issuing faucet (amounts accumulate in the vault under one key).
type Fungible struct {
	Faucet FaucetID
	Amount uint64
}

var _ Asset = Fungible{}

// NewFungible validates amount against MaxAmount and constructs a Fungible
// asset.
func NewFungible(faucet FaucetID, amount uint64) (Fungible, error) {
	if amount > MaxAmount {
		return Fungible{}, newErr(ErrAmountExceedsMax, "fungible amount exceeds MAX_AMOUNT")
	}
	return Fungible{Faucet: faucet, Amount: amount}, nil
}

func (f Fungible) VaultKey(crypto.Hasher) crypto.Word { return f.Faucet }
func (f Fungible) Issuer() FaucetID                   { return f.Faucet }

// Encode packs the amount alone; the faucet id is already the vault key
// under which this word is stored, so it is not duplicated here.
func (f Fungible) Encode() crypto.Word {
	return crypto.Word{crypto.NewFelt(f.Amount), 0, 0, 0}
}

// NonFungible is a single unique asset, keyed by a digest of its full
// payload so that two non-fungible assets with identical contents collide
// intentionally (they are the same asset) and distinct contents never do.
type NonFungible struct {
	Faucet  FaucetID
	Payload []byte
}

var _ Asset = NonFungible{}

func NewNonFungible(faucet FaucetID, payload []byte) (NonFungible, error) {
	if len(payload) == 0 {
		return NonFungible{}, newErr(ErrInvalidAssetFormat, "non-fungible payload must not be empty")
	}
	return NonFungible{Faucet: faucet, Payload: append([]byte(nil), payload...)}, nil
}

func (n NonFungible) VaultKey(h crypto.Hasher) crypto.Word {
	return h.HashElements(bytesToFelts(n.Payload))
}

func (n NonFungible) Issuer() FaucetID { return n.Faucet }

func bytesToFelts(b []byte) []crypto.Felt {
	out := make([]crypto.Felt, 0, (len(b)+7)/8)
	for i := 0; i < len(b); i += 8 {
		end := i + 8
		if end > len(b) {
			end = len(b)
		}
		var chunk [8]byte
		copy(chunk[:], b[i:end])
		var v uint64
		for j := 7; j >= 0; j-- {
			v = v<<8 | uint64(chunk[j])
		}
		out = append(out, crypto.NewFelt(v))
	}
	return out
}
