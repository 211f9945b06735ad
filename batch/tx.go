package batch

import (
	"rollup.dev/kernel/account"
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/note"
)

// ProvenTransaction is one transaction's contribution to a batch: its
// identity, which account it touched and the two endpoints of that
// account's state transition, the post-fee delta, the notes it consumed and
// produced, the fee it paid, and the block height after which it can no
// longer be included (spec.md sec.4.7 "a non-empty set of proven
// transactions").
//
// It is the batch package's own view of what txoutput.Extract produces: the
// fields it needs are a subset of an ExecutedTransaction plus the
// TransactionOutputs extracted from it, so a caller builds one with
// NewProvenTransaction right after calling txoutput.Extract.
type ProvenTransaction struct {
	Id                       crypto.Word
	AccountId                account.Id
	InitialAccountCommitment crypto.Word
	FinalAccountCommitment   crypto.Word
	Delta                    account.Delta
	InputNotes               []note.InputNote
	OutputNotes              []note.Note
	Fee                      asset.Fungible
	ExpirationBlockNum       uint32
}

// NewProvenTransaction assembles a ProvenTransaction from the pieces a
// caller has on hand right after extracting a transaction's outputs: the
// transaction's own identifying commitment, the account commitment it
// started from, the input notes it consumed, the post-fee delta, and the
// extracted final account/output notes/fee/expiration.
func NewProvenTransaction(
	h crypto.Hasher,
	id crypto.Word,
	initialAccountCommitment crypto.Word,
	inputNotes []note.InputNote,
	delta account.Delta,
	finalAccount *account.Account,
	outputNotes []note.Note,
	fee asset.Fungible,
	expirationBlockNum uint32,
) ProvenTransaction {
	return ProvenTransaction{
		Id:                       id,
		AccountId:                delta.AccountId,
		InitialAccountCommitment: initialAccountCommitment,
		FinalAccountCommitment:   finalAccount.Commitment(h),
		Delta:                    delta,
		InputNotes:               append([]note.InputNote(nil), inputNotes...),
		OutputNotes:              append([]note.Note(nil), outputNotes...),
		Fee:                      fee,
		ExpirationBlockNum:       expirationBlockNum,
	}
}
