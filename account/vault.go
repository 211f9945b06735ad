package account

import (
	"github.com/holiman/uint256"

	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
)

// Vault is an account's AssetVault: a sparse Merkle tree keyed by
// asset.Asset.VaultKey (spec.md sec.3 "AssetVault").
type Vault struct {
	hasher crypto.Hasher
	tree   *smt.Tree
}

func NewVault(h crypto.Hasher) *Vault {
	return &Vault{hasher: h, tree: smt.New(h)}
}

func (v *Vault) Root() crypto.Word { return v.tree.Root() }

// FungibleBalance returns the accumulated amount currently held for faucet.
func (v *Vault) FungibleBalance(faucet asset.FaucetID) uint64 {
	w, ok := v.tree.Get(faucet)
	if !ok {
		return 0
	}
	return uint64(w[0])
}

// HasNonFungible reports whether n is present in the vault.
func (v *Vault) HasNonFungible(n asset.NonFungible) bool {
	w, ok := v.tree.Get(n.VaultKey(v.hasher))
	return ok && !w.IsZero()
}

// AddFungible accumulates amount into the faucet's vault entry, enforcing
// sum <= asset.MaxAmount via an overflow-checked 256-bit intermediate
// (go-ethereum/erigon's idiom for bounded 64-bit value arithmetic).
func (v *Vault) AddFungible(a asset.Fungible) error {
	key := a.VaultKey(v.hasher)
	cur := v.FungibleBalance(key)
	sum := new(uint256.Int).SetUint64(cur)
	sum.Add(sum, new(uint256.Int).SetUint64(a.Amount))
	if sum.Gt(uint256.NewInt(asset.MaxAmount)) {
		return newErr(ErrVaultOverflow, "fungible sum exceeds MAX_AMOUNT")
	}
	v.tree.Set(key, crypto.Word{crypto.NewFelt(sum.Uint64()), 0, 0, 0})
	return nil
}

// RemoveFungible debits amount from the faucet's vault entry; amount must
// not exceed the current balance.
func (v *Vault) RemoveFungible(a asset.Fungible) error {
	key := a.VaultKey(v.hasher)
	cur := v.FungibleBalance(key)
	if a.Amount > cur {
		return newErr(ErrVaultUnderflow, "fungible removal exceeds current balance")
	}
	v.tree.Set(key, crypto.Word{crypto.NewFelt(cur - a.Amount), 0, 0, 0})
	return nil
}

// AddNonFungible inserts n, which must not already be present.
func (v *Vault) AddNonFungible(n asset.NonFungible) error {
	key := n.VaultKey(v.hasher)
	if w, ok := v.tree.Get(key); ok && !w.IsZero() {
		return newErr(ErrVaultDuplicateAsset, "non-fungible asset already present")
	}
	v.tree.Set(key, key)
	return nil
}

// RemoveNonFungible deletes n, which must be present.
func (v *Vault) RemoveNonFungible(n asset.NonFungible) error {
	key := n.VaultKey(v.hasher)
	if w, ok := v.tree.Get(key); !ok || w.IsZero() {
		return newErr(ErrVaultAssetNotFound, "non-fungible asset not found")
	}
	v.tree.Set(key, crypto.Zero)
	return nil
}

// Open returns a witness for key (inclusion or absence) against the
// vault's current root.
func (v *Vault) Open(key crypto.Word) smt.Witness {
	return v.tree.Open(key)
}

// Entries returns every occupied vault-tree entry, for callers that persist
// an account's vault across restarts (the store package).
func (v *Vault) Entries() []smt.Entry { return v.tree.Entries() }

// RestoreVault rebuilds a Vault from a previously exported entry list.
func RestoreVault(h crypto.Hasher, entries []smt.Entry) *Vault {
	return &Vault{hasher: h, tree: smt.FromEntries(h, entries)}
}
