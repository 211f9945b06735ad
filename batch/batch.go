// Package batch implements BatchAssembler: merging a set of proven
// transactions that share a reference block into one ProvenBatch, the unit
// BlockAssembler later folds into a block (spec.md sec.4.7).
//
// Grounded on consensus.ConnectBlockBasicInMemoryAtHeight's shape:
// accumulate per-unit state while walking an ordered list, validate bounds
// against the running total, then return a summary — generalized here from
// walking one block's transactions against a UTXO set to walking one
// batch's transactions against a per-account delta chain.
package batch

import (
	"log/slog"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
	"rollup.dev/kernel/note"
	"rollup.dev/kernel/partial"
)

// notePresent is the sentinel value a note-subtree leaf holds for a present
// note id (a zero leaf means absent, per smt's convention, so a non-zero
// marker is needed; the note id itself would work equally well, but a fixed
// marker keeps the leaf payload independent of which id landed there).
var notePresent = crypto.Word{1}

// ProvenBatch is BatchAssembler's output: the ordered transaction headers it
// packed, the aggregated per-account delta chain, the batch's own output
// note subtree, which input notes it resolved to authenticated nullifiers,
// which it could not resolve and defers to block level, and the batch's
// expiration (spec.md sec.4.7 "Output: ProvenBatch with a batch expiration
// = min of contained tx expirations, a batch note subtree, an aggregated
// delta per account, and the ordered transaction headers").
type ProvenBatch struct {
	Id                   crypto.Word
	Transactions         []ProvenTransaction
	AccountUpdates       map[account.Id]AccountBatchUpdate
	NoteTree             *smt.Tree
	OutputNotesByID      map[crypto.Word]note.Note
	Nullifiers           map[crypto.Word]bool
	UnauthenticatedNotes []note.InputNote
	ExpirationBlockNum   uint32
}

// AccountBatchUpdate is one account's net change across an entire batch:
// the combined delta plus the two commitment endpoints the block assembler
// chains against other batches touching the same account (spec.md sec.4.8
// "the sequence of batch-level deltas against that account must form a
// chain ... through each intermediate state to the final state").
type AccountBatchUpdate struct {
	Delta                    account.Delta
	InitialAccountCommitment crypto.Word
	FinalAccountCommitment   crypto.Word
}

func batchId(h crypto.Hasher, txs []ProvenTransaction) crypto.Word {
	elements := make([]crypto.Felt, 0, 1+len(txs)*4)
	elements = append(elements, crypto.NewFelt(uint64(len(txs))))
	for _, tx := range txs {
		elements = append(elements, tx.Id[:]...)
	}
	return h.HashElements(elements)
}

// Assembler packs proven transactions into batches, holding onto its
// configured caps and metrics across calls (spec.md sec.4.7, sec.5 "each
// transaction owns its host... a caller may run multiple in parallel" — an
// Assembler is the equivalent long-lived owner on the batch side).
type Assembler struct {
	opts Options
	mx   *metrics
}

// NewAssembler constructs an Assembler from opts, registering its metrics
// once so repeated Assemble calls against the same Prometheus registerer
// don't attempt duplicate registration.
func NewAssembler(opts Options) (*Assembler, error) {
	if opts.MaxTransactions == 0 && opts.MaxInputNotes == 0 && opts.MaxOutputNotes == 0 && opts.MaxAccounts == 0 {
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

// Assemble packs txs into one ProvenBatch against refBlock and chain (the
// partial blockchain projection covering every block any of txs' input
// notes might claim as their origin).
func (a *Assembler) Assemble(h crypto.Hasher, txs []ProvenTransaction, refBlock partial.BlockHeader, chain *partial.Blockchain) (*ProvenBatch, error) {
	opts := a.opts
	if len(txs) == 0 {
		return nil, newErr(ErrEmptyBatch, "batch must contain at least one transaction")
	}
	if len(txs) > opts.MaxTransactions {
		return nil, newErr(ErrTooManyTransactions, "transaction count exceeds the batch cap")
	}

	seenTx := make(map[crypto.Word]bool, len(txs))
	nullifiers := make(map[crypto.Word]bool)
	outputNotesByID := make(map[crypto.Word]note.Note)
	noteTree := smt.New(h)
	var unauthenticated []note.InputNote
	accountOrder := make([]account.Id, 0, len(txs))
	accountDelta := make(map[account.Id]account.Delta)
	accountInitial := make(map[account.Id]crypto.Word)
	accountFinal := make(map[account.Id]crypto.Word)
	expiration := uint32(0)
	inputNoteCount, outputNoteCount := 0, 0

	for i, tx := range txs {
		if seenTx[tx.Id] {
			return nil, newErr(ErrDuplicateTransaction, "duplicate transaction in batch")
		}
		seenTx[tx.Id] = true

		if tx.ExpirationBlockNum <= refBlock.BlockNum {
			return nil, newErr(ErrExpiredTransaction, "transaction has already expired against the reference block")
		}
		if i == 0 || tx.ExpirationBlockNum < expiration {
			expiration = tx.ExpirationBlockNum
		}

		inputNoteCount += len(tx.InputNotes)
		if inputNoteCount > opts.MaxInputNotes {
			return nil, newErr(ErrTooManyInputNotes, "input note count exceeds the batch cap")
		}
		outputNoteCount += len(tx.OutputNotes)
		if outputNoteCount > opts.MaxOutputNotes {
			return nil, newErr(ErrTooManyOutputNotes, "output note count exceeds the batch cap")
		}

		for _, in := range tx.InputNotes {
			resolved, err := authenticateInputNote(h, chain, in)
			if err != nil {
				return nil, err
			}
			if !resolved.Authenticated {
				unauthenticated = append(unauthenticated, resolved)
				continue
			}
			nullifier := resolved.Note.Nullifier(h)
			if nullifiers[nullifier] {
				return nil, newErr(ErrDuplicateNullifier, "duplicate input note nullifier in batch")
			}
			nullifiers[nullifier] = true
		}

		for _, n := range tx.OutputNotes {
			id := n.Id(h)
			if _, ok := outputNotesByID[id]; ok {
				return nil, newErr(ErrDuplicateOutputNote, "duplicate output note id in batch")
			}
			outputNotesByID[id] = n
			noteTree.Set(id, notePresent)
		}

		prevFinal, seen := accountFinal[tx.AccountId]
		if !seen {
			accountOrder = append(accountOrder, tx.AccountId)
			if len(accountOrder) > opts.MaxAccounts {
				return nil, newErr(ErrTooManyAccounts, "distinct account count exceeds the batch cap")
			}
			accountDelta[tx.AccountId] = tx.Delta
			accountInitial[tx.AccountId] = tx.InitialAccountCommitment
		} else {
			if tx.InitialAccountCommitment != prevFinal {
				return nil, newErr(ErrAccountChainMismatch, "transaction's initial account commitment does not match the prior transaction's final commitment")
			}
			combined, err := account.Combine(accountDelta[tx.AccountId], tx.Delta)
			if err != nil {
				return nil, err
			}
			accountDelta[tx.AccountId] = combined
		}
		accountFinal[tx.AccountId] = tx.FinalAccountCommitment
	}

	updates := make(map[account.Id]AccountBatchUpdate, len(accountOrder))
	for _, id := range accountOrder {
		updates[id] = AccountBatchUpdate{
			Delta:                    accountDelta[id],
			InitialAccountCommitment: accountInitial[id],
			FinalAccountCommitment:   accountFinal[id],
		}
	}

	pb := &ProvenBatch{
		Id:                   batchId(h, txs),
		Transactions:         append([]ProvenTransaction(nil), txs...),
		AccountUpdates:       updates,
		NoteTree:             noteTree,
		OutputNotesByID:      outputNotesByID,
		Nullifiers:           nullifiers,
		UnauthenticatedNotes: unauthenticated,
		ExpirationBlockNum:   expiration,
	}

	if a.mx != nil {
		a.mx.batchesAssembled.Inc()
		a.mx.transactionsPacked.Add(float64(len(txs)))
		a.mx.notesErased.Add(float64(len(unauthenticated)))
	}
	if opts.Logger != nil {
		opts.Logger.Info("batch assembled",
			"batch_id", pb.Id,
			"tx_count", len(txs),
			"account_count", len(accountOrder),
			"output_note_count", len(outputNotesByID),
			"unauthenticated_note_count", len(unauthenticated),
			"note_tree_root", noteTree.Root(),
		)
	}

	return pb, nil
}

// authenticateInputNote attempts to upgrade an unauthenticated-but-claiming
// InputNote to authenticated by checking its claimed origin block against
// chain and, if present, verifying the carried witness (spec.md sec.4.7).
// Already-authenticated notes and notes with no claim at all pass through
// unchanged.
func authenticateInputNote(h crypto.Hasher, chain *partial.Blockchain, in note.InputNote) (note.InputNote, error) {
	if in.Authenticated || in.Proof == nil {
		return in, nil
	}
	header, ok := chain.Header(in.Proof.BlockNum)
	if !ok {
		return in, nil
	}
	w := in.Proof.Witness
	if w.Key != in.Note.Id(h) {
		return note.InputNote{}, newErr(ErrInputNoteWitnessInvalid, "witness key does not match the note's id")
	}
	if !w.Verify(h, header.NoteRoot) {
		return note.InputNote{}, newErr(ErrInputNoteWitnessInvalid, "witness does not verify against the claimed origin block's note root")
	}
	return note.NewAuthenticated(in.Note, in.Proof.BlockNum, w), nil
}
