package account

import (
	"sort"

	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/crypto"
)

func lessWord(a, b crypto.Word) bool {
	ab, bb := a.Bytes(), b.Bytes()
	for i := 31; i >= 0; i-- {
		if ab[i] != bb[i] {
			return ab[i] < bb[i]
		}
	}
	return false
}

// StorageDelta records pending writes to an account's storage: full
// overwrites for Value slots, individual key writes for Map slots.
type StorageDelta struct {
	Values map[uint8]crypto.Word
	Maps   map[uint8]map[crypto.Word]crypto.Word
}

func NewStorageDelta() StorageDelta {
	return StorageDelta{Values: map[uint8]crypto.Word{}, Maps: map[uint8]map[crypto.Word]crypto.Word{}}
}

func (d StorageDelta) isEmpty() bool {
	return len(d.Values) == 0 && len(d.Maps) == 0
}

// merge composes two storage deltas in application order: entries in next
// overwrite entries in d for the same slot/key.
func (d StorageDelta) merge(next StorageDelta) StorageDelta {
	out := NewStorageDelta()
	for k, v := range d.Values {
		out.Values[k] = v
	}
	for k, v := range next.Values {
		out.Values[k] = v
	}
	for slot, entries := range d.Maps {
		m := map[crypto.Word]crypto.Word{}
		for k, v := range entries {
			m[k] = v
		}
		out.Maps[slot] = m
	}
	for slot, entries := range next.Maps {
		m, ok := out.Maps[slot]
		if !ok {
			m = map[crypto.Word]crypto.Word{}
			out.Maps[slot] = m
		}
		for k, v := range entries {
			m[k] = v
		}
	}
	return out
}

// commitmentElements flattens the storage delta into a deterministic
// element list: slot index then value for each written Value slot, sorted
// by index; slot index then (key, value) pairs for each written Map slot,
// sorted by index then key.
func (d StorageDelta) commitmentElements() []crypto.Felt {
	valIdxs := make([]uint8, 0, len(d.Values))
	for idx := range d.Values {
		valIdxs = append(valIdxs, idx)
	}
	sort.Slice(valIdxs, func(i, j int) bool { return valIdxs[i] < valIdxs[j] })

	elements := make([]crypto.Felt, 0, len(valIdxs)*5)
	for _, idx := range valIdxs {
		v := d.Values[idx]
		elements = append(elements, crypto.NewFelt(uint64(idx)))
		elements = append(elements, v[:]...)
	}

	mapIdxs := make([]uint8, 0, len(d.Maps))
	for idx := range d.Maps {
		mapIdxs = append(mapIdxs, idx)
	}
	sort.Slice(mapIdxs, func(i, j int) bool { return mapIdxs[i] < mapIdxs[j] })

	for _, idx := range mapIdxs {
		entries := d.Maps[idx]
		keys := make([]crypto.Word, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return lessWord(keys[i], keys[j]) })
		elements = append(elements, crypto.NewFelt(uint64(idx)))
		for _, k := range keys {
			v := entries[k]
			elements = append(elements, k[:]...)
			elements = append(elements, v[:]...)
		}
	}
	return elements
}

// VaultDelta records pending asset movements: signed fungible amounts keyed
// by faucet id, plus non-fungible assets added/removed.
type VaultDelta struct {
	Fungible       map[crypto.Word]int64
	NonFungibleAdd []asset.NonFungible
	NonFungibleDel []asset.NonFungible
}

func NewVaultDelta() VaultDelta {
	return VaultDelta{Fungible: map[crypto.Word]int64{}}
}

func (d VaultDelta) isEmpty() bool {
	return len(d.Fungible) == 0 && len(d.NonFungibleAdd) == 0 && len(d.NonFungibleDel) == 0
}

func (d VaultDelta) merge(next VaultDelta) VaultDelta {
	out := NewVaultDelta()
	for k, v := range d.Fungible {
		out.Fungible[k] = v
	}
	for k, v := range next.Fungible {
		out.Fungible[k] += v
	}
	out.NonFungibleAdd = append(append([]asset.NonFungible(nil), d.NonFungibleAdd...), next.NonFungibleAdd...)
	out.NonFungibleDel = append(append([]asset.NonFungible(nil), d.NonFungibleDel...), next.NonFungibleDel...)
	return out
}

// signedFelt packs a signed fungible amount into one Felt via modular
// subtraction from zero for negative amounts, so a faucet's net movement is
// representable without a separate sign element.
func signedFelt(amt int64) crypto.Felt {
	if amt >= 0 {
		return crypto.NewFelt(uint64(amt))
	}
	return crypto.Felt(0).Sub(crypto.NewFelt(uint64(-amt)))
}

// commitmentElements flattens the vault delta into a deterministic element
// list: (faucet_id, signed_amount) pairs sorted by faucet id, then added
// non-fungible vault keys, then removed non-fungible vault keys, each list
// in construction order (spec.md doesn't order these since a real vault
// delta never has more than one entry per non-fungible asset within a
// single transaction; construction order is deterministic here since it
// already reflects event-handling order).
func (d VaultDelta) commitmentElements(h crypto.Hasher) []crypto.Felt {
	keys := make([]crypto.Word, 0, len(d.Fungible))
	for k := range d.Fungible {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessWord(keys[i], keys[j]) })

	elements := make([]crypto.Felt, 0, len(keys)*5)
	for _, k := range keys {
		elements = append(elements, k[:]...)
		elements = append(elements, signedFelt(d.Fungible[k]))
	}
	for _, nf := range d.NonFungibleAdd {
		key := nf.VaultKey(h)
		elements = append(elements, key[:]...)
		elements = append(elements, 1)
	}
	for _, nf := range d.NonFungibleDel {
		key := nf.VaultKey(h)
		elements = append(elements, key[:]...)
		elements = append(elements, 0)
	}
	return elements
}

// Delta is an account's pending change set, produced by one or more
// transactions (spec.md sec.3 "AccountDelta").
type Delta struct {
	AccountId  Id
	Storage    StorageDelta
	Vault      VaultDelta
	NonceDelta crypto.Felt
}

func NewDelta(id Id) Delta {
	return Delta{AccountId: id, Storage: NewStorageDelta(), Vault: NewVaultDelta()}
}

// Validate enforces: if storage or vault changed, nonce_delta must be > 0
// (spec.md sec.3).
func (d Delta) Validate() error {
	if (!d.Storage.isEmpty() || !d.Vault.isEmpty()) && d.NonceDelta == 0 {
		return newErr(ErrNonceNotIncreasing, "storage or vault changed but nonce_delta is zero")
	}
	return nil
}

// Commitment summarises the delta into one Word: hash(id_suffix, id_prefix,
// nonce_delta, storage_delta elements, vault_delta elements). Used by
// txoutput's extraction stage to cross-check the VM's claimed
// account_update_commitment against the delta the host actually produced
// (spec.md sec.8 "AccountDelta::to_commitment").
func (d Delta) Commitment(h crypto.Hasher) crypto.Word {
	elements := []crypto.Felt{d.AccountId.Suffix, d.AccountId.Prefix, d.NonceDelta}
	elements = append(elements, d.Storage.commitmentElements()...)
	elements = append(elements, d.Vault.commitmentElements(h)...)
	return h.HashElements(elements)
}

// Combine composes a and b, which must target the same account, summing
// nonce deltas and checking the sum does not overflow the field modulus.
func Combine(a, b Delta) (Delta, error) {
	if a.AccountId != b.AccountId {
		return Delta{}, newErr(ErrSeedIdMismatch, "cannot combine deltas for different accounts")
	}
	sum := uint64(a.NonceDelta) + uint64(b.NonceDelta)
	if sum < uint64(a.NonceDelta) || sum >= crypto.FieldModulus {
		return Delta{}, newErr(ErrNonceOverflow, "combined nonce delta overflows the field modulus")
	}
	return Delta{
		AccountId:  a.AccountId,
		Storage:    a.Storage.merge(b.Storage),
		Vault:      a.Vault.merge(b.Vault),
		NonceDelta: crypto.Felt(sum),
	}, nil
}
