package note

import "rollup.dev/kernel/crypto/smt"

// Proof is an inclusion proof for a note against a specific block's note
// tree (spec.md sec.3 "InputNote... Authenticated { note, proof } (proof =
// inclusion against the note tree of a specific block)").
type Proof struct {
	BlockNum uint32
	Witness  smt.Witness
}

// InputNote is a note as it arrives at transaction execution: either
// already authenticated against a known block, or unauthenticated and
// pending later authentication (or erasure) at block assembly.
type InputNote struct {
	Note          Note
	Authenticated bool
	Proof         *Proof
}

// NewAuthenticated builds an already-proven InputNote.
func NewAuthenticated(n Note, blockNum uint32, witness smt.Witness) InputNote {
	return InputNote{Note: n, Authenticated: true, Proof: &Proof{BlockNum: blockNum, Witness: witness}}
}

// NewUnauthenticated builds an InputNote with no origin claim at all: it can
// only be resolved later if some other input (e.g. a block's
// unauthenticated-note erasure against a same-block output note) accounts
// for it.
func NewUnauthenticated(n Note) InputNote {
	return InputNote{Note: n, Authenticated: false}
}

// NewUnauthenticatedClaim builds an InputNote that claims blockNum as its
// origin and carries a witness for that claim, but has not yet had the
// claim checked against any chain projection. batch.Assemble verifies Proof
// against the partial blockchain it was given and upgrades Authenticated to
// true on success (spec.md sec.4.7 "if the block the note claims as its
// origin is in the partial blockchain, authenticate it"). block.Assemble does
// not read Proof; it resolves such notes through block.Inputs'
// UnauthenticatedNoteProofs.
func NewUnauthenticatedClaim(n Note, blockNum uint32, witness smt.Witness) InputNote {
	return InputNote{Note: n, Authenticated: false, Proof: &Proof{BlockNum: blockNum, Witness: witness}}
}
