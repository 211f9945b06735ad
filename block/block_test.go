package block

import (
	"testing"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/batch"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
	"rollup.dev/kernel/crypto/smt"
	"rollup.dev/kernel/note"
	"rollup.dev/kernel/partial"
)

func testNote(t *testing.T, h crypto.Hasher, sender account.Id, serial byte, faucet crypto.Word, amt uint64) note.Note {
	t.Helper()
	fa, err := asset.NewFungible(faucet, amt)
	if err != nil {
		t.Fatalf("NewFungible: %v", err)
	}
	n, err := note.Build(h, sender, note.TypePublic, note.Tag(0), note.ExecutionHint{Tag: note.HintAlways}, 0,
		crypto.Word{crypto.Felt(serial)}, crypto.Word{9}, nil, []asset.Asset{fa})
	if err != nil {
		t.Fatalf("note.Build: %v", err)
	}
	return n
}

func newPrevHeader(blockNum uint32, accountRoot, nullifierRoot crypto.Word, timestamp uint64) partial.BlockHeader {
	return partial.BlockHeader{
		BlockNum:      blockNum,
		Timestamp:     timestamp,
		AccountRoot:   accountRoot,
		NullifierRoot: nullifierRoot,
	}
}

func chainFor(t *testing.T, h crypto.Hasher, prev partial.BlockHeader) *partial.Blockchain {
	t.Helper()
	m := mmr.New(h)
	m.Append(prev.Commitment(h))
	path, ok := m.Prove(0)
	if !ok {
		t.Fatalf("Prove: no such leaf")
	}
	bc := partial.NewBlockchain(h, m.NumLeaves(), m.Peaks())
	if err := bc.AddHeader(prev, path); err != nil {
		t.Fatalf("AddHeader: %v", err)
	}
	return bc
}

func simpleUpdate(acc account.Id, initial, final crypto.Word, nonceDelta crypto.Felt) batch.AccountBatchUpdate {
	return batch.AccountBatchUpdate{
		Delta:                    account.Delta{AccountId: acc, Storage: account.NewStorageDelta(), Vault: account.NewVaultDelta(), NonceDelta: nonceDelta},
		InitialAccountCommitment: initial,
		FinalAccountCommitment:   final,
	}
}

func newAssembler(t *testing.T, opts Options) *Assembler {
	t.Helper()
	a, err := NewAssembler(opts)
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	return a
}

func baseInputs(h crypto.Hasher, prev partial.BlockHeader, chain *partial.Blockchain) Inputs {
	return Inputs{
		PrevBlockHeader:   prev,
		Timestamp:         prev.Timestamp + 1,
		PartialBlockchain: chain,
		AccountTree:       smt.New(h),
		NullifierTree:     smt.New(h),
	}
}

func TestAssemble_Success(t *testing.T) {
	h := crypto.Sha3Hasher{}
	accA := account.Id{Prefix: 1, Suffix: 2}
	accB := account.Id{Prefix: 3, Suffix: 4}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)

	b1 := &batch.ProvenBatch{
		Id:                 crypto.Word{1},
		AccountUpdates:     map[account.Id]batch.AccountBatchUpdate{accA: simpleUpdate(accA, crypto.Zero, crypto.Word{101}, 1)},
		OutputNotesByID:    map[crypto.Word]note.Note{},
		Nullifiers:         map[crypto.Word]bool{{55}: true},
		ExpirationBlockNum: 50,
	}
	b2 := &batch.ProvenBatch{
		Id:                 crypto.Word{2},
		AccountUpdates:     map[account.Id]batch.AccountBatchUpdate{accB: simpleUpdate(accB, crypto.Zero, crypto.Word{201}, 1)},
		OutputNotesByID:    map[crypto.Word]note.Note{},
		Nullifiers:         map[crypto.Word]bool{{66}: true},
		ExpirationBlockNum: 40,
	}

	a := newAssembler(t, DefaultOptions())
	in := baseInputs(h, prev, chain)
	pb, err := a.Assemble(h, []*batch.ProvenBatch{b1, b2}, in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if pb.Header.BlockNum != 10 {
		t.Fatalf("BlockNum = %v, want 10", pb.Header.BlockNum)
	}
	if len(pb.CreatedNullifiers) != 2 {
		t.Fatalf("len(CreatedNullifiers) = %v, want 2", len(pb.CreatedNullifiers))
	}
	if len(pb.AccountUpdates) != 2 {
		t.Fatalf("len(AccountUpdates) = %v, want 2", len(pb.AccountUpdates))
	}
	got, _ := in.AccountTree.Get(accountPrefixKey(accA))
	if got != (crypto.Word{101}) {
		t.Fatalf("AccountTree entry for accA = %v, want {101}", got)
	}
}

func TestAssemble_EmptyBlock(t *testing.T) {
	h := crypto.Sha3Hasher{}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	a := newAssembler(t, DefaultOptions())
	_, err := a.Assemble(h, nil, baseInputs(h, prev, chain))
	if err == nil {
		t.Fatal("expected error for empty block")
	}
}

func TestAssemble_TooManyBatches(t *testing.T) {
	h := crypto.Sha3Hasher{}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	batches := make([]*batch.ProvenBatch, 0, 3)
	for i := 0; i < 3; i++ {
		batches = append(batches, &batch.ProvenBatch{
			Id:              crypto.Word{crypto.Felt(i + 1)},
			AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
			OutputNotesByID: map[crypto.Word]note.Note{},
			Nullifiers:      map[crypto.Word]bool{},
		})
	}
	a := newAssembler(t, Options{MaxBatches: 2})
	_, err := a.Assemble(h, batches, baseInputs(h, prev, chain))
	if err == nil {
		t.Fatal("expected error for too many batches")
	}
}

func TestAssemble_TimestampNotIncreasing(t *testing.T) {
	h := crypto.Sha3Hasher{}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	a := newAssembler(t, DefaultOptions())
	in := baseInputs(h, prev, chain)
	in.Timestamp = prev.Timestamp
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1}, in)
	if err == nil {
		t.Fatal("expected error for non-increasing timestamp")
	}
}

func TestAssemble_DuplicateNullifierAcrossBatches(t *testing.T) {
	h := crypto.Sha3Hasher{}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{{77}: true},
	}
	b2 := &batch.ProvenBatch{
		Id:              crypto.Word{2},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{{77}: true},
	}
	a := newAssembler(t, DefaultOptions())
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1, b2}, baseInputs(h, prev, chain))
	if err == nil {
		t.Fatal("expected error for duplicate nullifier across batches")
	}
}

func TestAssemble_DuplicateOutputNoteAcrossBatches(t *testing.T) {
	h := crypto.Sha3Hasher{}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	sender := account.Id{Prefix: 1, Suffix: 2}
	n := testNote(t, h, sender, 1, crypto.Word{9}, 10)
	id := n.Id(h)
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID: map[crypto.Word]note.Note{id: n},
		Nullifiers:      map[crypto.Word]bool{},
	}
	b2 := &batch.ProvenBatch{
		Id:              crypto.Word{2},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID: map[crypto.Word]note.Note{id: n},
		Nullifiers:      map[crypto.Word]bool{},
	}
	a := newAssembler(t, DefaultOptions())
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1, b2}, baseInputs(h, prev, chain))
	if err == nil {
		t.Fatal("expected error for duplicate output note across batches")
	}
}

func TestAssemble_AccountChainedAcrossBatches(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := account.Id{Prefix: 1, Suffix: 2}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{acc: simpleUpdate(acc, crypto.Zero, crypto.Word{101}, 1)},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	b2 := &batch.ProvenBatch{
		Id:              crypto.Word{2},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{acc: simpleUpdate(acc, crypto.Word{101}, crypto.Word{102}, 1)},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	a := newAssembler(t, DefaultOptions())
	in := baseInputs(h, prev, chain)
	pb, err := a.Assemble(h, []*batch.ProvenBatch{b1, b2}, in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	upd := pb.AccountUpdates[acc]
	if upd.Delta.NonceDelta != 2 {
		t.Fatalf("combined NonceDelta = %v, want 2", upd.Delta.NonceDelta)
	}
	if upd.FinalAccountCommitment != (crypto.Word{102}) {
		t.Fatalf("FinalAccountCommitment = %v, want {102}", upd.FinalAccountCommitment)
	}
}

func TestAssemble_AccountChainMismatchAcrossBatches(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := account.Id{Prefix: 1, Suffix: 2}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{acc: simpleUpdate(acc, crypto.Zero, crypto.Word{101}, 1)},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	b2 := &batch.ProvenBatch{
		Id:              crypto.Word{2},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{acc: simpleUpdate(acc, crypto.Word{999}, crypto.Word{102}, 1)},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	a := newAssembler(t, DefaultOptions())
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1, b2}, baseInputs(h, prev, chain))
	if err == nil {
		t.Fatal("expected error for account chain mismatch across batches")
	}
}

func TestAssemble_AccountIdPrefixDuplicate(t *testing.T) {
	h := crypto.Sha3Hasher{}
	accA := account.Id{Prefix: 1, Suffix: 2}
	accB := account.Id{Prefix: 1, Suffix: 3}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{accA: simpleUpdate(accA, crypto.Zero, crypto.Word{101}, 1)},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	b2 := &batch.ProvenBatch{
		Id:              crypto.Word{2},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{accB: simpleUpdate(accB, crypto.Zero, crypto.Word{201}, 1)},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	a := newAssembler(t, DefaultOptions())
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1, b2}, baseInputs(h, prev, chain))
	if err == nil {
		t.Fatal("expected error for duplicate account id prefix")
	}
}

func TestAssemble_NullifierAlreadySpent(t *testing.T) {
	h := crypto.Sha3Hasher{}
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	nf := crypto.Word{88}
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{nf: true},
	}
	a := newAssembler(t, DefaultOptions())
	in := baseInputs(h, prev, chain)
	in.NullifierTree.Set(nf, crypto.Word{1})
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1}, in)
	if err == nil {
		t.Fatal("expected error for already-spent nullifier")
	}
}

func TestAssemble_StaleAccountWitness(t *testing.T) {
	h := crypto.Sha3Hasher{}
	acc := account.Id{Prefix: 1, Suffix: 2}
	prev := newPrevHeader(9, crypto.Word{1}, crypto.Zero, 100)
	chain := chainFor(t, h, prev)
	tree := smt.New(h)
	w := tree.Open(accountPrefixKey(acc))
	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{acc: simpleUpdate(acc, crypto.Zero, crypto.Word{101}, 1)},
		OutputNotesByID: map[crypto.Word]note.Note{},
		Nullifiers:      map[crypto.Word]bool{},
	}
	a := newAssembler(t, DefaultOptions())
	in := baseInputs(h, prev, chain)
	in.AccountWitnesses = map[account.Id]smt.Witness{acc: w}
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1}, in)
	if err == nil {
		t.Fatal("expected error for stale account witness")
	}
}

func TestAssemble_UnauthenticatedNoteErasure(t *testing.T) {
	h := crypto.Sha3Hasher{}
	sender := account.Id{Prefix: 1, Suffix: 2}
	n := testNote(t, h, sender, 1, crypto.Word{9}, 10)
	id := n.Id(h)
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)

	b1 := &batch.ProvenBatch{
		Id:              crypto.Word{1},
		AccountUpdates:  map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID: map[crypto.Word]note.Note{id: n},
		Nullifiers:      map[crypto.Word]bool{},
	}
	b2 := &batch.ProvenBatch{
		Id:                   crypto.Word{2},
		AccountUpdates:       map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID:      map[crypto.Word]note.Note{},
		Nullifiers:           map[crypto.Word]bool{},
		UnauthenticatedNotes: []note.InputNote{note.NewUnauthenticated(n)},
	}
	a := newAssembler(t, DefaultOptions())
	pb, err := a.Assemble(h, []*batch.ProvenBatch{b1, b2}, baseInputs(h, prev, chain))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pb.CreatedNullifiers) != 0 {
		t.Fatalf("len(CreatedNullifiers) = %v, want 0 (erased)", len(pb.CreatedNullifiers))
	}
	for _, notes := range pb.OutputNoteBatches {
		for _, kept := range notes {
			if kept.Id(h) == id {
				t.Fatal("erased output note still present in OutputNoteBatches")
			}
		}
	}
}

func TestAssemble_UnresolvedUnauthenticatedNote(t *testing.T) {
	h := crypto.Sha3Hasher{}
	sender := account.Id{Prefix: 1, Suffix: 2}
	n := testNote(t, h, sender, 1, crypto.Word{9}, 10)
	prev := newPrevHeader(9, crypto.Zero, crypto.Zero, 100)
	chain := chainFor(t, h, prev)

	b1 := &batch.ProvenBatch{
		Id:                   crypto.Word{1},
		AccountUpdates:       map[account.Id]batch.AccountBatchUpdate{},
		OutputNotesByID:      map[crypto.Word]note.Note{},
		Nullifiers:           map[crypto.Word]bool{},
		UnauthenticatedNotes: []note.InputNote{note.NewUnauthenticated(n)},
	}
	a := newAssembler(t, DefaultOptions())
	_, err := a.Assemble(h, []*batch.ProvenBatch{b1}, baseInputs(h, prev, chain))
	if err == nil {
		t.Fatal("expected error for unresolved unauthenticated note")
	}
}
