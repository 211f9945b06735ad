package partial

import (
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
)

// Vault is a lazily-populated projection of an account.Vault: it carries
// the same root the full vault would, plus whatever asset witnesses have
// been opened against that root so far (spec.md sec.3 "PartialVault... for
// the vault, a set of opened asset proofs").
type Vault struct {
	hasher crypto.Hasher
	root   crypto.Word
	opened map[crypto.Word]smt.Witness
}

func NewVault(h crypto.Hasher, root crypto.Word) *Vault {
	return &Vault{hasher: h, root: root, opened: map[crypto.Word]smt.Witness{}}
}

func (v *Vault) Root() crypto.Word { return v.root }

// Insert extends the projection with a freshly-fetched witness. The
// witness must verify against the vault's own root (spec.md sec.4.3:
// witnesses are always fetched against the *initial* root).
func (v *Vault) Insert(w smt.Witness) error {
	if !w.Verify(v.hasher, v.root) {
		return newErr(ErrRootMismatch, "asset witness does not verify against the vault's root")
	}
	v.opened[w.Key] = w
	return nil
}

// IsTracked reports whether key has already been opened in this projection.
func (v *Vault) IsTracked(key crypto.Word) bool {
	_, ok := v.opened[key]
	return ok
}

// Get returns the value at key if it has been opened; the caller must
// arrange for a witness event (IsTracked == false) before relying on the
// result otherwise.
func (v *Vault) Get(key crypto.Word) (crypto.Word, bool) {
	w, ok := v.opened[key]
	if !ok {
		return crypto.Zero, false
	}
	return w.Value, true
}

// Opened is an opaque iterator over the witnesses this projection has
// accumulated so far, for callers (the transaction/executor layers) that
// need to materialize them into the advice map and merkle store.
func (v *Vault) Opened() func(yield func(smt.Witness) bool) {
	return func(yield func(smt.Witness) bool) {
		for _, w := range v.opened {
			if !yield(w) {
				return
			}
		}
	}
}
