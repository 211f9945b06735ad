package testutil

import (
	"context"
	"fmt"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
	"rollup.dev/kernel/partial"
)

// FakeDataStore is an in-memory executor.DataStore: a plain map of accounts
// plus a header/path pair keyed by block number, with no persistence and no
// concurrency guards. MockChain keeps it in sync with its own account tree
// and header chain as blocks seal.
type FakeDataStore struct {
	Accounts map[account.Id]*account.Account
	Witness  map[account.Id]partial.AccountWitness
	Headers  map[uint32]partial.BlockHeader
	Paths    map[uint32]mmr.Path
}

// NewFakeDataStore returns an empty store ready for a caller to populate.
func NewFakeDataStore() *FakeDataStore {
	return &FakeDataStore{
		Accounts: map[account.Id]*account.Account{},
		Witness:  map[account.Id]partial.AccountWitness{},
		Headers:  map[uint32]partial.BlockHeader{},
		Paths:    map[uint32]mmr.Path{},
	}
}

func (s *FakeDataStore) ForeignAccount(ctx context.Context, id account.Id, accountRoot crypto.Word) (*account.Account, partial.AccountWitness, error) {
	acc, ok := s.Accounts[id]
	if !ok {
		return nil, partial.AccountWitness{}, fmt.Errorf("testutil: unknown foreign account %v", id)
	}
	w, ok := s.Witness[id]
	if !ok {
		return nil, partial.AccountWitness{}, fmt.Errorf("testutil: no witness recorded for account %v", id)
	}
	return acc, w, nil
}

func (s *FakeDataStore) BlockHeader(ctx context.Context, blockNum uint32, chainRoot crypto.Word) (partial.BlockHeader, mmr.Path, error) {
	header, ok := s.Headers[blockNum]
	if !ok {
		return partial.BlockHeader{}, mmr.Path{}, fmt.Errorf("testutil: unknown block %d", blockNum)
	}
	return header, s.Paths[blockNum], nil
}
