package account

import (
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
)

// Account is the kernel's account-state record (spec.md sec.3 "Account").
type Account struct {
	Id      Id
	Vault   *Vault
	Storage *Storage
	Code    Code
	Nonce   crypto.Felt
	Seed    *crypto.Word // present iff Nonce == 0
}

// Validate checks the seed/nonce invariant (spec.md sec.3: "seed present
// iff nonce == 0").
func (a *Account) Validate() error {
	if (a.Seed != nil) != (a.Nonce == 0) {
		return newErr(ErrSeedNonceMismatch, "seed must be present iff nonce is zero")
	}
	return a.Id.Validate()
}

// Commitment summarises the account into one Word: hash(id_suffix,
// id_prefix, 0, nonce, vault_root, storage_commitment, code_commitment)
// (spec.md sec.3). The dev hasher absorbs the whole element list in one
// call; a circuit-native permutation would instead absorb it across the two
// rate-sized blocks the field element count naturally splits into.
func (a *Account) Commitment(h crypto.Hasher) crypto.Word {
	elements := []crypto.Felt{a.Id.Suffix, a.Id.Prefix, 0, a.Nonce}
	vaultRoot := a.Vault.Root()
	storageCommitment := a.Storage.Commitment()
	codeCommitment := a.Code.Commitment(h)
	elements = append(elements, vaultRoot[:]...)
	elements = append(elements, storageCommitment[:]...)
	elements = append(elements, codeCommitment[:]...)
	return h.HashElements(elements)
}

// IsNew reports whether a has never had a transaction applied to it
// (spec.md sec.3/sec.8: a nonce of zero marks an account still at its
// seeded, pre-first-transaction state).
func (a *Account) IsNew() bool {
	return a.Nonce == 0
}

// InitialCommitment is the commitment a new account presents before its
// first transaction: the zero word, not Commitment(h) (spec.md sec.8's
// initial_commitment(A)). A freshly seeded account has no prior on-chain
// state to commit to, so block assembly treats a zero initial commitment
// as the signal that an account id is being created rather than updated.
func (a *Account) InitialCommitment(h crypto.Hasher) crypto.Word {
	if a.IsNew() {
		return crypto.Word{}
	}
	return a.Commitment(h)
}

// ApplyDelta mutates a in place per d, enforcing the nonce-monotonicity and
// seed-clearing invariants (spec.md sec.3, sec.8's apply_delta property).
func (a *Account) ApplyDelta(h crypto.Hasher, d Delta) error {
	if d.AccountId != a.Id {
		return newErr(ErrSeedIdMismatch, "delta targets a different account")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	sum := uint64(a.Nonce) + uint64(d.NonceDelta)
	if sum < uint64(a.Nonce) || sum >= crypto.FieldModulus {
		return newErr(ErrNonceOverflow, "nonce increment overflows the field modulus")
	}

	for idx, v := range d.Storage.Values {
		if err := a.Storage.SetValue(idx, v); err != nil {
			return err
		}
	}
	for idx, entries := range d.Storage.Maps {
		for k, v := range entries {
			if err := a.Storage.MapSet(idx, k, v); err != nil {
				return err
			}
		}
	}
	for faucetKey, delta := range d.Vault.Fungible {
		if delta == 0 {
			continue
		}
		if delta > 0 {
			f, err := asset.NewFungible(faucetKey, uint64(delta))
			if err != nil {
				return err
			}
			if err := a.Vault.AddFungible(f); err != nil {
				return err
			}
		} else {
			f, err := asset.NewFungible(faucetKey, uint64(-delta))
			if err != nil {
				return err
			}
			if err := a.Vault.RemoveFungible(f); err != nil {
				return err
			}
		}
	}
	for _, n := range d.Vault.NonFungibleAdd {
		if err := a.Vault.AddNonFungible(n); err != nil {
			return err
		}
	}
	for _, n := range d.Vault.NonFungibleDel {
		if err := a.Vault.RemoveNonFungible(n); err != nil {
			return err
		}
	}

	a.Nonce = crypto.Felt(sum)
	if a.Nonce > 0 {
		a.Seed = nil
	}
	return nil
}

// Snapshot is Account's persistable form (spec.md sec.6 "Account
// serialization: id, vault, storage, code, nonce, Option<seed>"), replacing
// the opaque *Vault/*Storage pointers with their own exported snapshot
// forms so a caller (the store package) can round-trip it through JSON.
type Snapshot struct {
	Id           Id
	VaultEntries []smt.Entry
	Storage      []SlotSnapshot
	Code         Code
	Nonce        crypto.Felt
	Seed         *crypto.Word
}

// Snapshot returns a's persistable form.
func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		Id:           a.Id,
		VaultEntries: a.Vault.Entries(),
		Storage:      a.Storage.Snapshot(),
		Code:         a.Code,
		Nonce:        a.Nonce,
		Seed:         a.Seed,
	}
}

// Restore rebuilds an Account from a previously exported Snapshot.
func Restore(h crypto.Hasher, s Snapshot) *Account {
	return &Account{
		Id:      s.Id,
		Vault:   RestoreVault(h, s.VaultEntries),
		Storage: RestoreStorage(h, s.Storage),
		Code:    s.Code,
		Nonce:   s.Nonce,
		Seed:    s.Seed,
	}
}
