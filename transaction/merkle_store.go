package transaction

import (
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
	"rollup.dev/kernel/crypto/smt"
)

// MerkleStore accumulates inner nodes for every authentication path the
// advice provider will need to walk during execution: MMR paths, input-note
// authentication paths, opened vault/storage-map leaves, and foreign-account
// witnesses (spec.md sec.4.4 "Merkle store: inner nodes for...").
//
// Nodes are keyed by their own hash, mapping a parent to its two children;
// this lets the VM resolve any node it is handed without needing an index,
// the same shape an advice provider's merkle store always takes.
type MerkleStore struct {
	nodes map[crypto.Word][2]crypto.Word
}

func NewMerkleStore() *MerkleStore {
	return &MerkleStore{nodes: map[crypto.Word][2]crypto.Word{}}
}

func (s *MerkleStore) set(parent, left, right crypto.Word) {
	s.nodes[parent] = [2]crypto.Word{left, right}
}

// Children returns the two children recorded for parent, if present.
func (s *MerkleStore) Children(parent crypto.Word) (left, right crypto.Word, ok bool) {
	c, ok := s.nodes[parent]
	if !ok {
		return crypto.Zero, crypto.Zero, false
	}
	return c[0], c[1], true
}

// Len reports the number of recorded inner nodes.
func (s *MerkleStore) Len() int { return len(s.nodes) }

// addPath walks leaf up to root along a bit-indexed sibling path, recording
// every (parent -> left, right) pair it passes through.
func (s *MerkleStore) addPath(h crypto.Hasher, leaf crypto.Word, index uint64, siblings []crypto.Word) {
	cur := leaf
	for _, sib := range siblings {
		var left, right crypto.Word
		if index%2 == 0 {
			left, right = cur, sib
		} else {
			left, right = sib, cur
		}
		parent := h.Hash2(left, right)
		s.set(parent, left, right)
		cur = parent
		index >>= 1
	}
}

// AddSmtWitness records the inner nodes of a sparse-Merkle-tree witness
// (single-entry-per-leaf form). w.Siblings is ordered root-ward-first
// (index 0 is the sibling nearest the root, smt.Tree.Open's own iteration
// order); addPath walks leaf-up, so the slice is consumed in reverse.
func (s *MerkleStore) AddSmtWitness(h crypto.Hasher, w smt.Witness) {
	var leaf crypto.Word
	if w.Value.IsZero() {
		leaf = h.HashElements(nil)
	} else {
		leaf = h.HashElements(append(append([]crypto.Felt{}, w.Key[:]...), w.Value[:]...))
	}
	leafWard := make([]crypto.Word, len(w.Siblings))
	for i, sib := range w.Siblings {
		leafWard[len(w.Siblings)-1-i] = sib
	}
	index := uint64(w.Key[0])
	s.addPath(h, leaf, index, leafWard)
}

// AddMmrPath records the inner nodes of an MMR inclusion path.
func (s *MerkleStore) AddMmrPath(h crypto.Hasher, p mmr.Path) {
	s.addPath(h, p.Leaf, p.LeafIndex, p.Siblings)
}
