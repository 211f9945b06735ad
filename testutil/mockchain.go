package testutil

import (
	"context"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/batch"
	"rollup.dev/kernel/block"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
	"rollup.dev/kernel/crypto/smt"
	"rollup.dev/kernel/executor"
	"rollup.dev/kernel/note"
	"rollup.dev/kernel/partial"
	"rollup.dev/kernel/transaction"
	"rollup.dev/kernel/txoutput"
)

// MockChain drives the full proposed -> proven pipeline over in-memory
// state: account/nullifier trees, a header chain, a FakeDataStore/
// FakeAuthenticator pair, and the batch/block assemblers, so a test can
// execute a transaction, pack it into a batch, seal a block, and assert on
// the result without a real VM or bbolt (spec.md sec.4.5-4.8 end to end).
type MockChain struct {
	Hasher crypto.Hasher

	AccountTree   *smt.Tree
	NullifierTree *smt.Tree
	Chain         *mmr.Mmr

	Store *FakeDataStore
	Auth  *FakeAuthenticator

	NativeAsset         account.Id
	VerificationBaseFee uint64

	Tip partial.BlockHeader

	batchAsm *batch.Assembler
	blockAsm *block.Assembler
}

// NewMockChain builds an empty chain at genesis (block 0, all-zero roots)
// with the given native fee asset.
func NewMockChain(h crypto.Hasher, nativeAsset account.Id, verificationBaseFee uint64) (*MockChain, error) {
	batchAsm, err := batch.NewAssembler(batch.DefaultOptions())
	if err != nil {
		return nil, err
	}
	blockAsm, err := block.NewAssembler(block.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &MockChain{
		Hasher:              h,
		AccountTree:         smt.New(h),
		NullifierTree:       smt.New(h),
		Chain:               mmr.New(h),
		Store:               NewFakeDataStore(),
		Auth:                NewFakeAuthenticator(h),
		NativeAsset:         nativeAsset,
		VerificationBaseFee: verificationBaseFee,
		Tip:                 partial.BlockHeader{},
		batchAsm:            batchAsm,
		blockAsm:            blockAsm,
	}, nil
}

func accountPrefixKey(id account.Id) crypto.Word {
	return crypto.Word{id.Prefix, 0, 0, 0}
}

// AddAccount seeds acc into the chain's genesis state: its full record goes
// into the fake store, its prefix/commitment pair into the account tree.
// Call this only before sealing the first block. The tip header's
// AccountRoot is kept in lockstep so the first SealBlock's witness
// freshness check (which verifies every account witness against the
// previous block's account root) has something to verify against.
func (m *MockChain) AddAccount(acc *account.Account) {
	m.Store.Accounts[acc.Id] = acc
	m.AccountTree.Set(accountPrefixKey(acc.Id), acc.Commitment(m.Hasher))
	m.Tip.AccountRoot = m.AccountTree.Root()
}

// partialBlockchain builds a Blockchain projection over the chain's current
// peaks, with every sealed header pre-authenticated (a MockChain always has
// every header on hand, unlike a real partial projection that only carries
// the subset a transaction's notes reference). The genesis header is not
// appended to m.Chain, so sealed block n sits at MMR leaf n-1.
func (m *MockChain) partialBlockchain() (*partial.Blockchain, error) {
	bc := partial.NewBlockchain(m.Hasher, m.Chain.NumLeaves(), m.Chain.Peaks())
	for blockNum, header := range m.Store.Headers {
		path, ok := m.Chain.Prove(uint64(blockNum) - 1)
		if !ok {
			continue
		}
		if err := bc.AddHeader(header, path); err != nil {
			return nil, err
		}
	}
	return bc, nil
}

// BuildInputs assembles transaction.Inputs for acc against the chain's
// current tip, with empty partial vault/storage projections a caller can
// populate by running events through a Host.
func (m *MockChain) BuildInputs(acc *account.Account, inputNotes []note.InputNote, args transaction.Args) (*transaction.Inputs, error) {
	bc, err := m.partialBlockchain()
	if err != nil {
		return nil, err
	}
	if args.NoteArgs == nil {
		args.NoteArgs = map[crypto.Word]crypto.Word{}
	}
	return &transaction.Inputs{
		Account:        acc,
		PartialVault:   partial.NewVault(m.Hasher, acc.Vault.Root()),
		PartialStorage: partial.NewStorage(m.Hasher, acc.Storage.Header()),
		InputNotes:     inputNotes,
		Context: transaction.Context{
			RefBlock:            m.Tip,
			Blockchain:          bc,
			NativeAsset:         m.NativeAsset,
			VerificationBaseFee: m.VerificationBaseFee,
		},
		Args: args,
	}, nil
}

// ExecuteTransaction runs events through a Host against in, extracts the
// resulting TransactionOutputs via txoutput.Extract, and returns the
// batch.ProvenTransaction ready to hand to AssembleBatch. txid identifies
// the transaction (the kernel has no real proof system here to derive one
// from); outputNotes/stack are the caller's claimed final values, the same
// way a real prover's stack outputs would arrive.
func (m *MockChain) ExecuteTransaction(
	ctx context.Context,
	hostOpts executor.Options,
	in *transaction.Inputs,
	events []executor.Event,
	txid crypto.Word,
	stack txoutput.StackOutputs,
	outputNotes []note.Note,
) (batch.ProvenTransaction, error) {
	host, err := executor.NewHost(m.Hasher, m.Store, m.Auth, hostOpts)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}
	sess, err := host.Execute(ctx, in, events)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}
	advice, err := transaction.BuildAdviceInputs(m.Hasher, *in)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}
	if err := transaction.MergeForeignAccountEntries(m.Hasher, advice.Map, sess.ForeignAccounts); err != nil {
		return batch.ProvenTransaction{}, err
	}
	et := executor.NewExecutedTransaction(in, advice, sess)

	initialCommitment := in.Account.InitialCommitment(m.Hasher)
	outputs, delta, err := txoutput.Extract(m.Hasher, et, stack, outputNotes)
	if err != nil {
		return batch.ProvenTransaction{}, err
	}

	return batch.NewProvenTransaction(
		m.Hasher,
		txid,
		initialCommitment,
		in.InputNotes,
		*delta,
		outputs.Account,
		outputs.OutputNotes,
		outputs.Fee,
		outputs.ExpirationBlockNum,
	), nil
}

// AssembleBatch packs txs into one ProvenBatch against the chain's current
// tip.
func (m *MockChain) AssembleBatch(txs []batch.ProvenTransaction) (*batch.ProvenBatch, error) {
	bc, err := m.partialBlockchain()
	if err != nil {
		return nil, err
	}
	return m.batchAsm.Assemble(m.Hasher, txs, m.Tip, bc)
}

// SealBlock folds batches into one ProvenBlock and applies its effects to
// the chain's persistent state: the account/nullifier trees, the sealed
// account records in the fake store, and the header chain, so the next
// call sees this block as its new tip.
func (m *MockChain) SealBlock(batches []*batch.ProvenBatch, timestamp uint64) (*block.ProvenBlock, error) {
	bc, err := m.partialBlockchain()
	if err != nil {
		return nil, err
	}

	accountWitnesses := map[account.Id]smt.Witness{}
	for _, b := range batches {
		for id := range b.AccountUpdates {
			if _, ok := accountWitnesses[id]; ok {
				continue
			}
			accountWitnesses[id] = m.AccountTree.Open(accountPrefixKey(id))
		}
	}
	nullifierWitnesses := map[crypto.Word]smt.Witness{}
	for _, b := range batches {
		for nf := range b.Nullifiers {
			nullifierWitnesses[nf] = m.NullifierTree.Open(nf)
		}
	}

	in := block.Inputs{
		PrevBlockHeader:           m.Tip,
		Timestamp:                timestamp,
		PartialBlockchain:         bc,
		AccountTree:               m.AccountTree,
		NullifierTree:             m.NullifierTree,
		AccountWitnesses:          accountWitnesses,
		NullifierWitnesses:        nullifierWitnesses,
		UnauthenticatedNoteProofs: map[crypto.Word]note.Proof{},
	}

	pb, err := m.blockAsm.Assemble(m.Hasher, batches, in)
	if err != nil {
		return nil, err
	}

	// txoutput.Extract applies a transaction's delta to its *Account in
	// place, so the accounts already registered in m.Store.Accounts (the
	// same pointers callers passed into BuildInputs/ExecuteTransaction)
	// already reflect this block's changes; only the witness cache needs
	// refreshing against the tree's new root.
	for id, upd := range pb.AccountUpdates {
		m.Store.Witness[id] = partial.AccountWitness{
			AccountId:       id,
			StateCommitment: upd.FinalAccountCommitment,
			Path:            m.AccountTree.Open(accountPrefixKey(id)),
		}
	}

	m.Chain.Append(pb.Header.Commitment(m.Hasher))
	m.Store.Headers[pb.Header.BlockNum] = pb.Header
	if path, ok := m.Chain.Prove(uint64(pb.Header.BlockNum) - 1); ok {
		m.Store.Paths[pb.Header.BlockNum] = path
	}
	m.Tip = pb.Header

	return pb, nil
}
