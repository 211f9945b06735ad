package partial

import (
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
)

// BlockHeader is the minimal set of per-block commitments the kernel needs
// to reference a historical block: its own commitments plus the chain
// position (spec.md sec.4.4's stack layout: "prev block commitment, chain
// commitment, account root, nullifier root, ..., [block_num, version,
// timestamp, 0], ..., note root").
type BlockHeader struct {
	BlockNum            uint32
	Version             uint32
	Timestamp           uint64
	PrevBlockCommitment crypto.Word
	ChainCommitment     crypto.Word
	AccountRoot         crypto.Word
	NullifierRoot       crypto.Word
	NoteRoot            crypto.Word
	TxCommitment        crypto.Word
}

// Commitment hashes the header's fields into the single Word an MMR leaf
// (and other references to this block) carries.
func (b BlockHeader) Commitment(h crypto.Hasher) crypto.Word {
	elements := []crypto.Felt{
		crypto.NewFelt(uint64(b.BlockNum)),
		crypto.NewFelt(uint64(b.Version)),
		crypto.NewFelt(b.Timestamp),
		0,
	}
	elements = append(elements, b.PrevBlockCommitment[:]...)
	elements = append(elements, b.ChainCommitment[:]...)
	elements = append(elements, b.AccountRoot[:]...)
	elements = append(elements, b.NullifierRoot[:]...)
	elements = append(elements, b.NoteRoot[:]...)
	elements = append(elements, b.TxCommitment[:]...)
	return h.HashElements(elements)
}

// Blockchain is a projection of the full chain MMR: the current peak set
// (authoritative) plus inclusion paths for whichever historical headers a
// transaction's input notes actually reference (spec.md sec.3
// "PartialBlockchain. MMR peaks of the chain plus inclusion paths for a
// specific subset of historical block headers").
type Blockchain struct {
	hasher    crypto.Hasher
	numLeaves uint64
	peaks     []crypto.Word
	headers   map[uint32]BlockHeader
}

func NewBlockchain(h crypto.Hasher, numLeaves uint64, peaks []crypto.Word) *Blockchain {
	return &Blockchain{
		hasher:    h,
		numLeaves: numLeaves,
		peaks:     append([]crypto.Word(nil), peaks...),
		headers:   map[uint32]BlockHeader{},
	}
}

// NumLeaves returns the chain length this projection was built against.
func (c *Blockchain) NumLeaves() uint64 { return c.numLeaves }

// Peaks returns the current peak set.
func (c *Blockchain) Peaks() []crypto.Word { return append([]crypto.Word(nil), c.peaks...) }

// Root is the chain commitment: the same formula crypto/mmr.Mmr.Root uses,
// evaluated over this projection's peak set.
func (c *Blockchain) Root() crypto.Word {
	elements := []crypto.Felt{crypto.NewFelt(c.numLeaves), 0, 0, 0}
	for _, p := range c.peaks {
		elements = append(elements, p[:]...)
	}
	return c.hasher.HashElements(elements)
}

// AddHeader authenticates header against the current peak set via path and,
// on success, makes it available through Header.
func (c *Blockchain) AddHeader(header BlockHeader, path mmr.Path) error {
	if path.Leaf != header.Commitment(c.hasher) {
		return newErr(ErrRootMismatch, "block header does not match the MMR leaf claimed by the path")
	}
	if !mmr.Verify(c.hasher, path, c.peaks) {
		return newErr(ErrRootMismatch, "block header inclusion path does not verify against the chain's peaks")
	}
	c.headers[header.BlockNum] = header
	return nil
}

// Header returns a previously-authenticated header, if present.
func (c *Blockchain) Header(blockNum uint32) (BlockHeader, bool) {
	h, ok := c.headers[blockNum]
	return h, ok
}
