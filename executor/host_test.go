package executor

import (
	"context"
	"testing"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
	"rollup.dev/kernel/crypto/smt"
	"rollup.dev/kernel/partial"
	"rollup.dev/kernel/transaction"
)

type fakeStore struct {
	accounts map[account.Id]*account.Account
	witness  map[account.Id]partial.AccountWitness
	headers  map[uint32]partial.BlockHeader
	paths    map[uint32]mmr.Path
}

func (s *fakeStore) ForeignAccount(ctx context.Context, id account.Id, accountRoot crypto.Word) (*account.Account, partial.AccountWitness, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return nil, partial.AccountWitness{}, newErr(ErrForeignAccountFetch, "unknown account")
	}
	return acc, s.witness[id], nil
}

func (s *fakeStore) BlockHeader(ctx context.Context, blockNum uint32, chainRoot crypto.Word) (partial.BlockHeader, mmr.Path, error) {
	return s.headers[blockNum], s.paths[blockNum], nil
}

type fakeAuth struct {
	response crypto.Word
	err      error
}

func (a *fakeAuth) Authenticate(ctx context.Context, id account.Id, message crypto.Word) (crypto.Word, error) {
	return a.response, a.err
}

func testAccountFor(t *testing.T, h crypto.Hasher) *account.Account {
	t.Helper()
	components := []account.Component{
		{Name: "auth", Procedures: []account.Procedure{
			{MastRoot: crypto.Word{1}, IsAuth: true},
		}, SlotCount: 1, InitialSlots: []account.Slot{account.NewMapSlot(h)}},
	}
	for i := 0; i < 1<<20; i++ {
		seed := crypto.Word{crypto.Felt(i), 7, 7, 7}
		acc, err := account.Build(h, components, account.TypeRegularUpdatable, account.StoragePublic, seed)
		if err == nil {
			return acc
		}
		if ae, ok := err.(*account.Error); !ok || ae.Code != account.ErrSeedGrindInsufficient {
			t.Fatalf("Build() unexpected error: %v", err)
		}
	}
	t.Fatalf("failed to grind a valid seed")
	return nil
}

func testInputs(t *testing.T, h crypto.Hasher, acc *account.Account) *transaction.Inputs {
	t.Helper()
	m := mmr.New(h)
	header := partial.BlockHeader{BlockNum: 1}
	m.Append(header.Commitment(h))
	bc := partial.NewBlockchain(h, m.NumLeaves(), m.Peaks())
	return &transaction.Inputs{
		Account:        acc,
		PartialVault:   partial.NewVault(h, acc.Vault.Root()),
		PartialStorage: partial.NewStorage(h, acc.Storage.Header()),
		Context: transaction.Context{
			RefBlock:            header,
			Blockchain:          bc,
			NativeAsset:         account.Id{Prefix: 1, Suffix: 2},
			VerificationBaseFee: 2,
		},
		Args: transaction.Args{NoteArgs: map[crypto.Word]crypto.Word{}},
	}
}

func TestHandleEvent_PushProcedureIndex(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	host, err := NewHost(h, nil, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	sess := NewSession(in)
	resp, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventAccountPushProcedureIndex, ProcRoot: crypto.Word{1}})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if resp.ProcIndex != 0 {
		t.Fatalf("ProcIndex = %d, want 0", resp.ProcIndex)
	}
}

func TestHandleEvent_PushProcedureIndexUnknown(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	host, _ := NewHost(h, nil, nil, DefaultOptions())
	sess := NewSession(in)
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventAccountPushProcedureIndex, ProcRoot: crypto.Word{99}}); err == nil {
		t.Fatalf("expected error for unknown procedure root")
	}
}

func TestHandleEvent_AuthRequest(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	auth := &fakeAuth{response: crypto.Word{55}}
	host, err := NewHost(h, nil, auth, DefaultOptions())
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	sess := NewSession(in)
	resp, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventAuthRequest, AuthMessage: crypto.Word{1}})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if resp.AuthArgs != (crypto.Word{55}) {
		t.Fatalf("AuthArgs = %v, want {55}", resp.AuthArgs)
	}
}

func TestHandleEvent_AuthRequestNoAuthenticator(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	host, _ := NewHost(h, nil, nil, DefaultOptions())
	sess := NewSession(in)
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventAuthRequest}); err == nil {
		t.Fatalf("expected error with no authenticator configured")
	}
}

func TestHandleEvent_VaultWitness(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	faucet := crypto.Word{9}
	f, err := asset.NewFungible(faucet, 10)
	if err != nil {
		t.Fatalf("NewFungible: %v", err)
	}
	if err := acc.Vault.AddFungible(f); err != nil {
		t.Fatalf("AddFungible: %v", err)
	}
	in := testInputs(t, h, acc)
	in.PartialVault = partial.NewVault(h, acc.Vault.Root())

	host, _ := NewHost(h, nil, nil, DefaultOptions())
	sess := NewSession(in)
	resp, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventAccountVaultAssetWitness, VaultKey: faucet})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if resp.VaultWitnessValue[0] != crypto.NewFelt(10) {
		t.Fatalf("VaultWitnessValue = %v, want amount 10", resp.VaultWitnessValue)
	}
	if !in.PartialVault.IsTracked(faucet) {
		t.Fatalf("partial vault did not record the opened witness")
	}
}

func TestHandleEvent_StorageWitness(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	key := crypto.Word{3}
	if err := acc.Storage.MapSet(0, key, crypto.Word{4}); err != nil {
		t.Fatalf("MapSet: %v", err)
	}
	in := testInputs(t, h, acc)
	header := acc.Storage.Header()
	in.PartialStorage = partial.NewStorage(h, header)
	root := header[0].Commitment

	host, _ := NewHost(h, nil, nil, DefaultOptions())
	sess := NewSession(in)
	resp, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventAccountStorageMapWitness, StorageMapRoot: root, StorageMapKey: key})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if resp.StorageWitnessValue != (crypto.Word{4}) {
		t.Fatalf("StorageWitnessValue = %v, want {4}", resp.StorageWitnessValue)
	}
	if !in.PartialStorage.OpenMap(root).IsTracked(key) {
		t.Fatalf("partial storage did not record the opened witness")
	}
}

func TestHandleEvent_EpilogueFee(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	native := in.Context.NativeAsset.Word()
	f, err := asset.NewFungible(native, 100)
	if err != nil {
		t.Fatalf("NewFungible: %v", err)
	}
	if err := acc.Vault.AddFungible(f); err != nil {
		t.Fatalf("AddFungible: %v", err)
	}

	host, _ := NewHost(h, nil, nil, DefaultOptions())
	sess := NewSession(in)
	sess.CyclesUsed = 5
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventEpilogueBeforeTxFeeRemovedFromAccount}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	wantFee := in.Context.VerificationBaseFee * 6 // sess.CyclesUsed increments once more on entry
	if sess.FeeCharged != wantFee {
		t.Fatalf("FeeCharged = %d, want %d", sess.FeeCharged, wantFee)
	}
	if sess.Delta.Vault.Fungible[native] != -int64(wantFee) {
		t.Fatalf("delta fungible entry = %d, want %d", sess.Delta.Vault.Fungible[native], -int64(wantFee))
	}
}

func TestHandleEvent_EpilogueFeeInsufficientFunds(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	host, _ := NewHost(h, nil, nil, DefaultOptions())
	sess := NewSession(in)
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventEpilogueBeforeTxFeeRemovedFromAccount}); err == nil {
		t.Fatalf("expected insufficient-funds error when the account has no native asset balance")
	}
}

func TestHandleEvent_LinkMapRoundTrip(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	host, _ := NewHost(h, nil, nil, DefaultOptions())
	sess := NewSession(in)

	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventLinkMapSet, LinkKey: crypto.Word{1}, LinkValue: crypto.Word{2}}); err != nil {
		t.Fatalf("HandleEvent(Set): %v", err)
	}
	resp, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventLinkMapGet, LinkKey: crypto.Word{1}})
	if err != nil {
		t.Fatalf("HandleEvent(Get): %v", err)
	}
	if !resp.LinkFound || resp.LinkValue != (crypto.Word{2}) {
		t.Fatalf("LinkMapGet = (%v, %v), want ({2}, true)", resp.LinkValue, resp.LinkFound)
	}
}

func TestHandleEvent_CycleBudgetExceeded(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)
	host, err := NewHost(h, nil, nil, Options{CycleBudget: 1})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	sess := NewSession(in)
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventLinkMapGet}); err != nil {
		t.Fatalf("first event should stay within budget: %v", err)
	}
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventLinkMapGet}); err == nil {
		t.Fatalf("expected cycle budget exceeded error")
	}
}

func TestHandleEvent_ForeignAccount(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)

	foreign := testAccountFor(t, h)
	commitment := foreign.Commitment(h)
	store := &fakeStore{
		accounts: map[account.Id]*account.Account{foreign.Id: foreign},
		witness: map[account.Id]partial.AccountWitness{
			foreign.Id: {AccountId: foreign.Id, StateCommitment: commitment},
		},
	}
	host, err := NewHost(h, store, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	sess := NewSession(in)
	// The witness above carries no merkle path, so Verify will fail against
	// any non-trivial root; this exercises the failure branch explicitly.
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventForeignAccount, ForeignAccountId: foreign.Id}); err == nil {
		t.Fatalf("expected witness verification failure without a real merkle path")
	}
}

func TestHandleEvent_ForeignAccountSuccess(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := testAccountFor(t, h)
	in := testInputs(t, h, acc)

	foreign := testAccountFor(t, h)
	commitment := foreign.Commitment(h)
	prefixKey := crypto.Word{foreign.Id.Prefix, 0, 0, 0}

	tree := smt.New(h)
	tree.Set(prefixKey, commitment)
	root := tree.Root()
	path := tree.Open(prefixKey)
	in.Context.RefBlock.AccountRoot = root

	store := &fakeStore{
		accounts: map[account.Id]*account.Account{foreign.Id: foreign},
		witness: map[account.Id]partial.AccountWitness{
			foreign.Id: {AccountId: foreign.Id, StateCommitment: commitment, Path: path},
		},
	}
	host, err := NewHost(h, store, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	sess := NewSession(in)
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventForeignAccount, ForeignAccountId: foreign.Id}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if sess.ForeignAccounts[foreign.Id] != foreign {
		t.Fatalf("foreign account not recorded in the session")
	}
	if len(sess.AccessedForeignAccountCode) != 1 {
		t.Fatalf("AccessedForeignAccountCode len = %d, want 1", len(sess.AccessedForeignAccountCode))
	}

	// A second event for the same account must not duplicate the accessed
	// list, and the advice map built afterward must actually carry the
	// foreign account's code, storage header, and id -> header entries.
	if _, err := host.HandleEvent(context.Background(), sess, Event{Kind: EventForeignAccount, ForeignAccountId: foreign.Id}); err != nil {
		t.Fatalf("HandleEvent (second call): %v", err)
	}
	if len(sess.AccessedForeignAccountCode) != 1 {
		t.Fatalf("AccessedForeignAccountCode len after repeat access = %d, want 1", len(sess.AccessedForeignAccountCode))
	}

	advice, err := transaction.BuildAdviceInputs(h, *in)
	if err != nil {
		t.Fatalf("BuildAdviceInputs: %v", err)
	}
	if err := transaction.MergeForeignAccountEntries(h, advice.Map, sess.ForeignAccounts); err != nil {
		t.Fatalf("MergeForeignAccountEntries: %v", err)
	}
	if _, ok := advice.Map.Get(foreign.Id.Word()); !ok {
		t.Fatalf("advice map missing the foreign account's id -> header entry")
	}
	codeCommitment := foreign.Code.Commitment(h)
	if _, ok := advice.Map.Get(codeCommitment); !ok {
		t.Fatalf("advice map missing the foreign account's code entry")
	}
	storageCommitment := foreign.Storage.Commitment()
	if _, ok := advice.Map.Get(storageCommitment); !ok {
		t.Fatalf("advice map missing the foreign account's storage header entry")
	}
}
