// Package mmr implements a Merkle Mountain Range: an append-only
// accumulator of block-header commitments supporting short inclusion
// proofs for any past leaf.
//
// Grounded on consensus/fork_choice.go's chain-of-headers accumulation
// idiom (ChainWorkFromTargets summing over an ordered header list),
// adapted from additive work to peak-hash accumulation, and on
// consensus/merkle.go's tagged-pair hashing for interior nodes.
package mmr

import "rollup.dev/kernel/crypto"

// Mmr accumulates leaves (one per block header) into a forest of perfect
// binary "mountains" whose peaks commit to the whole history.
//
// Mountain boundaries are the binary decomposition of the leaf count
// (standard MMR shape): e.g. 7 leaves form mountains of size 4, 2, 1.
// Peaks/paths are recomputed from the leaf list on demand rather than
// incrementally cached, which keeps the algorithm simple and correct at the
// scale this kernel operates at (proving inclusion of a handful of
// historical block headers per transaction, not millions of leaves).
type Mmr struct {
	hasher crypto.Hasher
	leaves []crypto.Word
}

func New(h crypto.Hasher) *Mmr {
	return &Mmr{hasher: h}
}

// NumLeaves returns the number of leaves appended so far.
func (m *Mmr) NumLeaves() uint64 { return uint64(len(m.leaves)) }

// Append adds a new leaf.
func (m *Mmr) Append(leaf crypto.Word) {
	m.leaves = append(m.leaves, leaf)
}

// mountainSizes returns the leaf-count decomposition of n into descending
// powers of two.
func mountainSizes(n uint64) []uint64 {
	var sizes []uint64
	for bit := 63; bit >= 0; bit-- {
		if n&(1<<uint(bit)) != 0 {
			sizes = append(sizes, 1<<uint(bit))
		}
	}
	return sizes
}

// perfectRoot hashes a contiguous, power-of-two-length leaf slice into a
// single root, via balanced binary recursion.
func perfectRoot(h crypto.Hasher, leaves []crypto.Word) crypto.Word {
	if len(leaves) == 1 {
		return leaves[0]
	}
	half := len(leaves) / 2
	return h.Hash2(perfectRoot(h, leaves[:half]), perfectRoot(h, leaves[half:]))
}

// Peaks returns the current peak hashes, left (oldest/tallest mountain) to
// right (most recent leaf, if unmerged).
func (m *Mmr) Peaks() []crypto.Word {
	sizes := mountainSizes(uint64(len(m.leaves)))
	peaks := make([]crypto.Word, len(sizes))
	var offset uint64
	for i, size := range sizes {
		peaks[i] = perfectRoot(m.hasher, m.leaves[offset:offset+size])
		offset += size
	}
	return peaks
}

// Root commits to the current leaf count and peak set (spec.md sec.4.4: the
// advice map's "mmr_root -> [num_leaves, 0,0,0, peaks...]" entry keys off
// this).
func (m *Mmr) Root() crypto.Word {
	elements := []crypto.Felt{crypto.Felt(len(m.leaves)), 0, 0, 0}
	for _, p := range m.Peaks() {
		elements = append(elements, p[:]...)
	}
	return m.hasher.HashElements(elements)
}

// Path is an inclusion proof for one leaf: the sibling hashes from the leaf
// up to the peak that covers it, plus which peak that is.
type Path struct {
	LeafIndex uint64
	Leaf      crypto.Word
	Siblings  []crypto.Word
	PeakIndex int
}

// perfectPath returns the leaf-to-root sibling path for localIndex within a
// contiguous power-of-two leaf slice, along with the leaf's own value.
func perfectPath(h crypto.Hasher, leaves []crypto.Word, localIndex uint64) ([]crypto.Word, crypto.Word) {
	if len(leaves) == 1 {
		return nil, leaves[0]
	}
	half := uint64(len(leaves) / 2)
	if localIndex < half {
		path, leaf := perfectPath(h, leaves[:half], localIndex)
		return append(path, perfectRoot(h, leaves[half:])), leaf
	}
	path, leaf := perfectPath(h, leaves[half:], localIndex-half)
	return append(path, perfectRoot(h, leaves[:half])), leaf
}

// Prove returns an inclusion path for the leaf at leafIndex.
func (m *Mmr) Prove(leafIndex uint64) (Path, bool) {
	if leafIndex >= uint64(len(m.leaves)) {
		return Path{}, false
	}
	sizes := mountainSizes(uint64(len(m.leaves)))
	var offset uint64
	for mi, size := range sizes {
		if leafIndex >= offset && leafIndex < offset+size {
			siblings, leaf := perfectPath(m.hasher, m.leaves[offset:offset+size], leafIndex-offset)
			return Path{LeafIndex: leafIndex, Leaf: leaf, Siblings: siblings, PeakIndex: mi}, true
		}
		offset += size
	}
	return Path{}, false
}

// Verify checks that path resolves to peaks[path.PeakIndex]. Because every
// mountain's leaf-index offset is, by construction, a multiple of that
// mountain's size, the global LeafIndex's low bits already give the correct
// left/right turn at every level, so no separate local-index bookkeeping is
// needed.
func Verify(h crypto.Hasher, path Path, peaks []crypto.Word) bool {
	if path.PeakIndex < 0 || path.PeakIndex >= len(peaks) {
		return false
	}
	cur := path.Leaf
	idx := path.LeafIndex
	for _, sib := range path.Siblings {
		if idx%2 == 0 {
			cur = h.Hash2(cur, sib)
		} else {
			cur = h.Hash2(sib, cur)
		}
		idx >>= 1
	}
	return cur == peaks[path.PeakIndex]
}
