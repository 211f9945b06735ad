// Package partial implements verified projections of the kernel's full
// Merkle structures: partial vaults, partial storage, and the partial
// blockchain, each carrying only the subset of state a transaction actually
// touches plus the witnesses needed to authenticate it (spec.md sec.3
// "PartialState").
package partial

import (
	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
)

// AccountWitness proves a specific account's state commitment is present in
// the global AccountTree at AccountId.prefix (spec.md sec.7
// "AccountWitness: (account_id, state_commitment, sparse_merkle_path) where
// path depth must equal the tree depth (64)").
type AccountWitness struct {
	AccountId       account.Id
	StateCommitment crypto.Word
	Path            smt.Witness
}

// Verify checks the witness against root: the path's key must be the
// account id's prefix packed as a word, its value the claimed state
// commitment, and the path itself must verify.
func (w AccountWitness) Verify(h crypto.Hasher, root crypto.Word) bool {
	if w.Path.Key != prefixKey(w.AccountId) {
		return false
	}
	if w.Path.Value != w.StateCommitment {
		return false
	}
	return w.Path.Verify(h, root)
}

func prefixKey(id account.Id) crypto.Word {
	return crypto.Word{id.Prefix, 0, 0, 0}
}

// NullifierWitness proves a nullifier's spent-status leaf in the global
// NullifierTree (0 = unspent, spec.md sec.3).
type NullifierWitness struct {
	Nullifier  crypto.Word
	BlockSpent uint32
	Path       smt.Witness
}

func (w NullifierWitness) Verify(h crypto.Hasher, root crypto.Word) bool {
	if w.Path.Key != w.Nullifier {
		return false
	}
	if uint64(w.Path.Value[0]) != uint64(w.BlockSpent) {
		return false
	}
	return w.Path.Verify(h, root)
}
