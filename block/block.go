// Package block implements BlockAssembler: folding an ordered set of
// batches into one ProvenBlock, applying the block's nullifier and account
// updates to the kernel's persistent global trees and rebuilding the
// per-block note tree fresh (spec.md sec.4.8).
//
// Grounded on the same consensus.ConnectBlockBasicInMemoryAtHeight shape as
// batch.Assembler, one level up: walking an ordered list of batches instead
// of transactions, against the chain's persistent trees instead of a
// per-batch scratch one.
package block

import (
	"log/slog"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/batch"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
	"rollup.dev/kernel/note"
	"rollup.dev/kernel/partial"
)

// Inputs gathers everything BlockAssembler needs beyond the ordered batch
// list itself (spec.md sec.4.8 "BlockInputs { prev_block_header,
// partial_blockchain, account_witnesses, nullifier_witnesses,
// unauthenticated_note_proofs }").
//
// AccountTree and NullifierTree are the live, persistent global trees:
// Assemble mutates them in place via Tree.Set rather than recomputing their
// roots from witnesses, so the caller (the store layer) owns them across
// blocks. AccountWitnesses/NullifierWitnesses are used only to check that
// the caller's view of those trees is fresh against prev_block_header
// before any mutation is applied (spec.md sec.4.8 "Witness freshness:
// every supplied account witness's root must equal prev_block.account_root").
type Inputs struct {
	PrevBlockHeader           partial.BlockHeader
	Timestamp                 uint64
	PartialBlockchain         *partial.Blockchain
	AccountTree               *smt.Tree
	NullifierTree             *smt.Tree
	AccountWitnesses          map[account.Id]smt.Witness
	NullifierWitnesses        map[crypto.Word]smt.Witness
	UnauthenticatedNoteProofs map[crypto.Word]note.Proof
}

// ProvenBlock is BlockAssembler's output: the new header, the per-account
// updates actually applied, the surviving (non-erased) output notes grouped
// by the batch that produced them, the nullifiers newly recorded as spent,
// and the ordered transaction headers the block commits to (spec.md
// sec.4.8 "Output: ProvenBlock with the new header, account updates,
// output-note batches (with erasures), created nullifiers, and ordered
// transaction headers").
type ProvenBlock struct {
	Header            partial.BlockHeader
	AccountUpdates    map[account.Id]batch.AccountBatchUpdate
	OutputNoteBatches [][]note.Note
	CreatedNullifiers []crypto.Word
	Transactions      []batch.ProvenTransaction
	NoteTree          *smt.Tree
}

// Assembler folds batches into blocks, holding its configured caps and
// metrics across calls (mirrors batch.Assembler).
type Assembler struct {
	opts Options
	mx   *metrics
}

// NewAssembler constructs an Assembler from opts, registering its metrics
// once so repeated Assemble calls against the same Prometheus registerer
// don't attempt duplicate registration.
func NewAssembler(opts Options) (*Assembler, error) {
	if opts.MaxBatches == 0 {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	mx, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}
	return &Assembler{opts: opts, mx: mx}, nil
}

// Assemble folds batches into one ProvenBlock against in.
func (a *Assembler) Assemble(h crypto.Hasher, batches []*batch.ProvenBatch, in Inputs) (*ProvenBlock, error) {
	opts := a.opts
	if len(batches) == 0 {
		return nil, newErr(ErrEmptyBlock, "block must contain at least one batch")
	}
	if len(batches) > opts.MaxBatches {
		return nil, newErr(ErrTooManyBatches, "batch count exceeds the block cap")
	}
	if in.Timestamp <= in.PrevBlockHeader.Timestamp {
		return nil, newErr(ErrTimestampNotIncreasing, "block timestamp must strictly increase over the previous block")
	}

	if err := checkAccountWitnessFreshness(h, in); err != nil {
		return nil, err
	}
	if err := checkNullifierWitnessFreshness(h, in); err != nil {
		return nil, err
	}

	// Resolve any notes the batch layer could not authenticate, against
	// unauthenticated_note_proofs, before attempting intra-block erasure.
	resolvedUnauth := make([][]note.InputNote, len(batches))
	for i, b := range batches {
		resolved := make([]note.InputNote, 0, len(b.UnauthenticatedNotes))
		for _, in2 := range b.UnauthenticatedNotes {
			r, err := resolveUnauthenticatedNote(h, in, in2)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, r)
		}
		resolvedUnauth[i] = resolved
	}

	// Build the block-wide set of output notes in production order, so
	// erasure only matches an unauthenticated note against an output note
	// produced by an earlier (or the same) batch (spec.md sec.4.8: "an
	// output note produced earlier in the same block").
	outputProducedBy := make(map[crypto.Word]int)
	erasedOutput := make(map[crypto.Word]bool)
	erasedInput := make(map[crypto.Word]bool)

	for bi, b := range batches {
		for id := range b.OutputNotesByID {
			if _, ok := outputProducedBy[id]; ok {
				return nil, newErr(ErrDuplicateOutputNote, "duplicate output note id across batches in block")
			}
			outputProducedBy[id] = bi
		}
	}

	for bi, unauth := range resolvedUnauth {
		for _, in2 := range unauth {
			id := in2.Note.Id(h)
			if producedByIdx, ok := outputProducedBy[id]; ok && producedByIdx <= bi {
				erasedOutput[id] = true
				erasedInput[id] = true
				continue
			}
			if !in2.Authenticated {
				return nil, newErr(ErrUnresolvedNote, "unauthenticated input note could not be resolved within the block")
			}
		}
	}

	nullifiers := make(map[crypto.Word]bool)
	for bi, b := range batches {
		for nf := range b.Nullifiers {
			if nullifiers[nf] {
				return nil, newErr(ErrDuplicateNullifier, "duplicate nullifier across batches in block")
			}
			nullifiers[nf] = true
		}
		for _, in2 := range resolvedUnauth[bi] {
			id := in2.Note.Id(h)
			if erasedInput[id] {
				continue
			}
			nf := in2.Note.Nullifier(h)
			if nullifiers[nf] {
				return nil, newErr(ErrDuplicateNullifier, "duplicate nullifier across batches in block")
			}
			nullifiers[nf] = true
		}
	}

	// Apply nullifiers to the persistent NullifierTree.
	created := make([]crypto.Word, 0, len(nullifiers))
	for nf := range nullifiers {
		spent, ok := in.NullifierTree.Get(nf)
		if ok && !spent.IsZero() {
			return nil, newErr(ErrNullifierAlreadySpent, "nullifier already recorded as spent")
		}
		created = append(created, nf)
	}
	newBlockNum := in.PrevBlockHeader.BlockNum + 1
	for _, nf := range created {
		in.NullifierTree.Set(nf, blockNumWord(newBlockNum))
	}
	if a.mx != nil {
		a.mx.nullifiersRecorded.Add(float64(len(created)))
	}

	// Chain and apply account updates across batches.
	accountOrder := make([]account.Id, 0)
	accountDelta := make(map[account.Id]account.Delta)
	accountInitial := make(map[account.Id]crypto.Word)
	accountFinal := make(map[account.Id]crypto.Word)

	for _, b := range batches {
		for id, upd := range b.AccountUpdates {
			prevFinal, seen := accountFinal[id]
			if !seen {
				accountOrder = append(accountOrder, id)
				accountDelta[id] = upd.Delta
				accountInitial[id] = upd.InitialAccountCommitment
			} else {
				if upd.InitialAccountCommitment != prevFinal {
					return nil, newErr(ErrAccountChainMismatch, "batch's initial account commitment does not match the prior batch's final commitment")
				}
				combined, err := account.Combine(accountDelta[id], upd.Delta)
				if err != nil {
					return nil, err
				}
				accountDelta[id] = combined
			}
			accountFinal[id] = upd.FinalAccountCommitment
		}
	}

	prefixOwner := make(map[crypto.Felt]account.Id, len(accountOrder))
	updates := make(map[account.Id]batch.AccountBatchUpdate, len(accountOrder))
	for _, id := range accountOrder {
		if owner, seen := prefixOwner[id.Prefix]; seen && owner != id {
			return nil, newErr(ErrAccountIdPrefixDup, "two distinct account ids share a prefix within the same block")
		}
		prefixOwner[id.Prefix] = id

		prefixKey := accountPrefixKey(id)
		existing, ok := in.AccountTree.Get(prefixKey)
		isNewAccount := accountInitial[id].IsZero()
		switch {
		case isNewAccount && ok && !existing.IsZero():
			return nil, newErr(ErrAccountIdPrefixDup, "account id prefix already occupied by an existing, differently-suffixed account")
		case !isNewAccount && ok && existing != accountInitial[id]:
			return nil, newErr(ErrAccountChainMismatch, "account tree's current commitment does not match the chain's expected initial commitment")
		}

		in.AccountTree.Set(prefixKey, accountFinal[id])
		updates[id] = batch.AccountBatchUpdate{
			Delta:                    accountDelta[id],
			InitialAccountCommitment: accountInitial[id],
			FinalAccountCommitment:   accountFinal[id],
		}
	}
	if a.mx != nil {
		a.mx.accountsUpdated.Add(float64(len(accountOrder)))
	}

	// Rebuild the block note tree fresh from each batch's subtree, with
	// erasures applied (spec.md sec.4.8 "Rebuild the BlockNoteTree from
	// per-batch subtrees, with erased notes removed from their batch's
	// subtree").
	noteTree := smt.New(h)
	outputBatches := make([][]note.Note, len(batches))
	for bi, b := range batches {
		var kept []note.Note
		for id, n := range b.OutputNotesByID {
			if erasedOutput[id] {
				continue
			}
			noteTree.Set(id, n.Id(h))
			kept = append(kept, n)
		}
		outputBatches[bi] = kept
	}

	var allTxs []batch.ProvenTransaction
	for _, b := range batches {
		allTxs = append(allTxs, b.Transactions...)
	}

	header := partial.BlockHeader{
		BlockNum:            in.PrevBlockHeader.BlockNum + 1,
		Version:             in.PrevBlockHeader.Version,
		Timestamp:           in.Timestamp,
		PrevBlockCommitment: in.PrevBlockHeader.Commitment(h),
		ChainCommitment:     in.PartialBlockchain.Root(),
		AccountRoot:         in.AccountTree.Root(),
		NullifierRoot:       in.NullifierTree.Root(),
		NoteRoot:            noteTree.Root(),
		TxCommitment:        txCommitment(h, allTxs),
	}

	if a.mx != nil {
		a.mx.blocksAssembled.Inc()
		a.mx.batchesPacked.Add(float64(len(batches)))
		a.mx.notesErased.Add(float64(len(erasedOutput)))
	}
	if opts.Logger != nil {
		opts.Logger.Info("block assembled",
			"block_num", header.BlockNum,
			"batch_count", len(batches),
			"account_count", len(accountOrder),
			"nullifier_count", len(created),
			"erased_count", len(erasedOutput),
		)
	}

	return &ProvenBlock{
		Header:            header,
		AccountUpdates:    updates,
		OutputNoteBatches: outputBatches,
		CreatedNullifiers: created,
		Transactions:      allTxs,
		NoteTree:          noteTree,
	}, nil
}

// accountPrefixKey is the key AccountTree indexes by: the account id's
// prefix alone, so that two accounts sharing a prefix collide on the same
// tree entry regardless of their suffix (spec.md sec.3 "AccountTree maps
// AccountId.prefix -> state_commitment").
func accountPrefixKey(id account.Id) crypto.Word {
	return crypto.Word{id.Prefix, 0, 0, 0}
}

func blockNumWord(n uint32) crypto.Word {
	return crypto.Word{crypto.NewFelt(uint64(n)), 0, 0, 0}
}

func checkAccountWitnessFreshness(h crypto.Hasher, in Inputs) error {
	for id, w := range in.AccountWitnesses {
		if w.Key != accountPrefixKey(id) {
			return newErr(ErrMissingAccountWitness, "account witness key does not match the account's prefix")
		}
		if !w.Verify(h, in.PrevBlockHeader.AccountRoot) {
			return newErr(ErrStaleAccountWitness, "account witness does not verify against the previous block's account root")
		}
	}
	return nil
}

func checkNullifierWitnessFreshness(h crypto.Hasher, in Inputs) error {
	for nf, w := range in.NullifierWitnesses {
		if w.Key != nf {
			return newErr(ErrMissingNullifierWitness, "nullifier witness key does not match the nullifier")
		}
		if !w.Verify(h, in.PrevBlockHeader.NullifierRoot) {
			return newErr(ErrStaleNullifierWitness, "nullifier witness does not verify against the previous block's nullifier root")
		}
	}
	return nil
}

// resolveUnauthenticatedNote attempts to upgrade in2 using the proof the
// caller supplied in in.UnauthenticatedNoteProofs, if any. An unresolved
// note is left as-is; callers detect unresolved notes after the erasure
// pass (an erased note never needs resolving).
func resolveUnauthenticatedNote(h crypto.Hasher, in Inputs, in2 note.InputNote) (note.InputNote, error) {
	if in2.Authenticated {
		return in2, nil
	}
	proof, ok := in.UnauthenticatedNoteProofs[in2.Note.Id(h)]
	if !ok {
		return in2, nil
	}
	header, ok := in.PartialBlockchain.Header(proof.BlockNum)
	if !ok {
		return in2, nil
	}
	if proof.Witness.Key != in2.Note.Id(h) {
		return note.InputNote{}, newErr(ErrUnresolvedNote, "supplied note proof's witness key does not match the note's id")
	}
	if !proof.Witness.Verify(h, header.NoteRoot) {
		return note.InputNote{}, newErr(ErrUnresolvedNote, "supplied note proof does not verify against its claimed origin block's note root")
	}
	return note.NewAuthenticated(in2.Note, proof.BlockNum, proof.Witness), nil
}

func txCommitment(h crypto.Hasher, txs []batch.ProvenTransaction) crypto.Word {
	elements := make([]crypto.Felt, 0, 1+len(txs)*4)
	elements = append(elements, crypto.NewFelt(uint64(len(txs))))
	for _, tx := range txs {
		elements = append(elements, tx.Id[:]...)
	}
	return h.HashElements(elements)
}
