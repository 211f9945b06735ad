package testutil

import (
	"testing"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/batch"
	"rollup.dev/kernel/crypto"
)

func fundedAccount(t *testing.T, h crypto.Hasher, native account.Id, seedTag crypto.Felt, amount uint64) *account.Account {
	t.Helper()
	components := SingleAuthComponent(h, crypto.Word{1})
	acc, err := GrindAccount(h, components, account.TypeRegularUpdatable, account.StoragePublic, seedTag)
	if err != nil {
		t.Fatalf("GrindAccount: %v", err)
	}
	fund, err := asset.NewFungible(native.Word(), amount)
	if err != nil {
		t.Fatalf("NewFungible: %v", err)
	}
	if err := acc.Vault.AddFungible(fund); err != nil {
		t.Fatalf("AddFungible: %v", err)
	}
	return acc
}

func TestMockChain_ExecuteAssembleSealRoundTrip(t *testing.T) {
	h := crypto.Sha3Hasher{}
	native := account.Id{Prefix: 10, Suffix: 20}

	chain, err := NewMockChain(h, native, 2)
	if err != nil {
		t.Fatalf("NewMockChain: %v", err)
	}

	acc := fundedAccount(t, h, native, 7, 1000)
	chain.AddAccount(acc)
	initialBalance := acc.Vault.FungibleBalance(native.Word())

	tx, err := ExecuteFeeOnlyTransaction(h, chain, acc, crypto.Word{99}, 1000)
	if err != nil {
		t.Fatalf("ExecuteFeeOnlyTransaction: %v", err)
	}
	if tx.Fee.Amount != 2 {
		t.Fatalf("tx fee = %d, want 2 (base fee 2 * 1 cycle)", tx.Fee.Amount)
	}

	pbatch, err := chain.AssembleBatch([]batch.ProvenTransaction{tx})
	if err != nil {
		t.Fatalf("AssembleBatch: %v", err)
	}
	if len(pbatch.Transactions) != 1 {
		t.Fatalf("batch has %d transactions, want 1", len(pbatch.Transactions))
	}
	upd, ok := pbatch.AccountUpdates[acc.Id]
	if !ok {
		t.Fatalf("batch has no account update for %v", acc.Id)
	}
	if upd.FinalAccountCommitment != acc.Commitment(h) {
		t.Fatalf("batch's final account commitment does not match the mutated account's own commitment")
	}

	block1, err := chain.SealBlock([]*batch.ProvenBatch{pbatch}, 1)
	if err != nil {
		t.Fatalf("SealBlock: %v", err)
	}
	if block1.Header.BlockNum != 1 {
		t.Fatalf("block num = %d, want 1", block1.Header.BlockNum)
	}
	if block1.Header.AccountRoot != chain.AccountTree.Root() {
		t.Fatalf("sealed header's account root does not match the chain's account tree root")
	}
	if block1.Header.AccountRoot == (crypto.Word{}) {
		t.Fatalf("sealed header's account root is zero")
	}
	if chain.Tip.BlockNum != 1 {
		t.Fatalf("chain tip not advanced: BlockNum = %d", chain.Tip.BlockNum)
	}
	if chain.Chain.NumLeaves() != 1 {
		t.Fatalf("chain mmr has %d leaves, want 1", chain.Chain.NumLeaves())
	}

	gotBalance := acc.Vault.FungibleBalance(native.Word())
	if gotBalance != initialBalance-2 {
		t.Fatalf("account balance after sealing = %d, want %d", gotBalance, initialBalance-2)
	}

	// A second block, built against the new tip, should chain cleanly: the
	// account's next transaction starts from its post-block-1 commitment,
	// and witnesses drawn fresh off the tree verify against the new tip's
	// account root.
	tx2, err := ExecuteFeeOnlyTransaction(h, chain, acc, crypto.Word{100}, 1000)
	if err != nil {
		t.Fatalf("ExecuteFeeOnlyTransaction (tx 2): %v", err)
	}
	pbatch2, err := chain.AssembleBatch([]batch.ProvenTransaction{tx2})
	if err != nil {
		t.Fatalf("AssembleBatch (block 2): %v", err)
	}
	block2, err := chain.SealBlock([]*batch.ProvenBatch{pbatch2}, 2)
	if err != nil {
		t.Fatalf("SealBlock (block 2): %v", err)
	}
	if block2.Header.BlockNum != 2 {
		t.Fatalf("block num = %d, want 2", block2.Header.BlockNum)
	}
	if block2.Header.PrevBlockCommitment != block1.Header.Commitment(h) {
		t.Fatalf("block 2's prev_block_commitment does not match block 1's own commitment")
	}
}

func TestMockChain_SealBlock_RejectsNonIncreasingTimestamp(t *testing.T) {
	h := crypto.Sha3Hasher{}
	native := account.Id{Prefix: 1, Suffix: 2}

	chain, err := NewMockChain(h, native, 1)
	if err != nil {
		t.Fatalf("NewMockChain: %v", err)
	}
	acc := fundedAccount(t, h, native, 3, 10)
	chain.AddAccount(acc)

	tx, err := ExecuteFeeOnlyTransaction(h, chain, acc, crypto.Word{1}, 1000)
	if err != nil {
		t.Fatalf("ExecuteFeeOnlyTransaction: %v", err)
	}
	pbatch, err := chain.AssembleBatch([]batch.ProvenTransaction{tx})
	if err != nil {
		t.Fatalf("AssembleBatch: %v", err)
	}
	if _, err := chain.SealBlock([]*batch.ProvenBatch{pbatch}, 0); err == nil {
		t.Fatalf("SealBlock with timestamp 0 (not increasing past genesis) succeeded, want error")
	}
}
