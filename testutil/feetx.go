package testutil

import (
	"context"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/batch"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/executor"
	"rollup.dev/kernel/transaction"
	"rollup.dev/kernel/txoutput"
)

// ExecuteFeeOnlyTransaction runs the smallest possible event trace against
// acc through chain, just the epilogue fee deduction, and packages the
// result as a batch.ProvenTransaction ready for AssembleBatch. It exists
// because this repo has no real VM to drive a richer trace from; it is
// still a full run through Host and Extract, not a shortcut around them.
//
// No host event increments an account's nonce (nonce changes are
// VM-internal, not host-driven, in this kernel's event set), so this sets
// the session delta's NonceDelta directly before building the stack
// outputs Extract cross-checks against: Extract requires nonce_delta > 0
// whenever storage or vault changed, and the fee deduction always touches
// the vault.
func ExecuteFeeOnlyTransaction(h crypto.Hasher, chain *MockChain, acc *account.Account, txid crypto.Word, expirationBlockNum uint32) (batch.ProvenTransaction, error) {
	in, err := chain.BuildInputs(acc, nil, transaction.Args{})
	if err != nil {
		return batch.ProvenTransaction{}, err
	}

	host, err := executor.NewHost(h, chain.Store, chain.Auth, executor.DefaultOptions())
	if err != nil {
		return batch.ProvenTransaction{}, err
	}

	events := []executor.Event{{Kind: executor.EventEpilogueBeforeTxFeeRemovedFromAccount}}
	sess, err := host.Execute(context.Background(), in, events)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}
	sess.Delta.NonceDelta = crypto.NewFelt(1)

	deltaCommitment := sess.Delta.Commitment(h)
	projected := account.Restore(h, acc.Snapshot())
	if err := projected.ApplyDelta(h, sess.Delta); err != nil {
		return batch.ProvenTransaction{}, err
	}
	accountUpdateCommitment := h.Hash2(projected.Commitment(h), deltaCommitment)
	outputNotesCommitment := h.HashElements([]crypto.Felt{crypto.NewFelt(0)})

	fee, err := asset.NewFungible(chain.NativeAsset.Word(), sess.FeeCharged)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}

	stack := txoutput.StackOutputs{
		OutputNotesCommitment:   outputNotesCommitment,
		AccountUpdateCommitment: accountUpdateCommitment,
		FeeAsset:                fee,
		ExpirationBlockNum:      expirationBlockNum,
	}

	advice, err := transaction.BuildAdviceInputs(h, *in)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}
	if err := transaction.MergeForeignAccountEntries(h, advice.Map, sess.ForeignAccounts); err != nil {
		return batch.ProvenTransaction{}, err
	}
	et := executor.NewExecutedTransaction(in, advice, sess)

	initialCommitment := in.Account.InitialCommitment(h)
	outputs, delta, err := txoutput.Extract(h, et, stack, nil)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}

	return batch.NewProvenTransaction(
		h, txid, initialCommitment, in.InputNotes, *delta,
		outputs.Account, outputs.OutputNotes, outputs.Fee, outputs.ExpirationBlockNum,
	), nil
}
