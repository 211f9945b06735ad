package transaction

import (
	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
	"rollup.dev/kernel/partial"
)

// AdviceInputs is the fully-assembled payload a transaction execution hands
// to the VM's advice provider: the operand stack, the key-to-value-vector
// advice map, and the merkle store backing every authentication path the
// execution may walk (spec.md sec.4.4 "TransactionAdviceInputs").
type AdviceInputs struct {
	Stack       []crypto.Felt
	Map         *AdviceMap
	MerkleStore *MerkleStore
}

// BuildAdviceInputs assembles in's stack, advice map, and merkle store in
// the fixed, positional order spec.md sec.4.4 specifies. Nothing here
// decides what the VM does with the inputs; this package only packages the
// account/note/context facts the executor (the next layer up) hands to the
// VM.
func BuildAdviceInputs(h crypto.Hasher, in Inputs) (AdviceInputs, error) {
	stack := buildStack(h, in)

	advMap := NewAdviceMap()
	store := NewMerkleStore()

	if err := addCodeAndStorageEntries(h, in, advMap); err != nil {
		return AdviceInputs{}, err
	}
	if err := addVaultEntries(h, in, advMap, store); err != nil {
		return AdviceInputs{}, err
	}
	if err := addStorageMapEntries(h, in, advMap, store); err != nil {
		return AdviceInputs{}, err
	}
	if err := addInputNoteEntries(h, in, advMap); err != nil {
		return AdviceInputs{}, err
	}
	if err := addBlockchainEntries(h, in, advMap, store); err != nil {
		return AdviceInputs{}, err
	}
	if in.Account.Seed != nil {
		seed := *in.Account.Seed
		if err := advMap.Insert(in.Account.Id.Word(), seed[:]); err != nil {
			return AdviceInputs{}, err
		}
	}

	return AdviceInputs{Stack: stack, Map: advMap, MerkleStore: store}, nil
}

// MergeForeignAccountEntries folds every foreign account a transaction's
// execution loaded into advMap: the account's code and storage-header
// entries under their own commitments, the same shape
// addCodeAndStorageEntries records for the executing account, plus an
// account_id_word -> account_header_word entry so the VM can resolve a
// foreign account id straight to its state commitment (spec.md sec.4.4
// "For foreign accounts", sec.4.5's ForeignAccount event response).
func MergeForeignAccountEntries(h crypto.Hasher, advMap *AdviceMap, accounts map[account.Id]*account.Account) error {
	for id, acc := range accounts {
		if err := addCodeAndStorageEntries(h, Inputs{Account: acc}, advMap); err != nil {
			return err
		}
		header := acc.Commitment(h)
		if err := advMap.Insert(id.Word(), header[:]); err != nil {
			return err
		}
	}
	return nil
}

func pushWord(stack *[]crypto.Felt, w crypto.Word) {
	*stack = append(*stack, w[:]...)
}

// buildStack lays down the operand stack in spec.md sec.4.4's fixed,
// positional order: block/chain commitments, the reference block's own
// fields, the executing account's own commitments, and the caller-supplied
// transaction arguments, innermost (first-pushed) to outermost.
func buildStack(h crypto.Hasher, in Inputs) []crypto.Felt {
	ref := in.Context.RefBlock
	stack := make([]crypto.Felt, 0, 128)

	pushWord(&stack, ref.PrevBlockCommitment)
	pushWord(&stack, in.Context.Blockchain.Root())
	pushWord(&stack, ref.AccountRoot)
	pushWord(&stack, ref.NullifierRoot)
	pushWord(&stack, in.TxCommitment)
	pushWord(&stack, in.Context.KernelCommitment)
	pushWord(&stack, in.Context.ProofCommitment)

	stack = append(stack,
		crypto.NewFelt(uint64(ref.BlockNum)),
		crypto.NewFelt(uint64(ref.Version)),
		crypto.NewFelt(ref.Timestamp),
		0,
	)
	stack = append(stack,
		in.Context.NativeAsset.Suffix,
		in.Context.NativeAsset.Prefix,
		crypto.NewFelt(in.Context.VerificationBaseFee),
		0,
	)
	stack = append(stack, 0, 0, 0, 0)

	pushWord(&stack, ref.NoteRoot)

	stack = append(stack,
		in.Account.Id.Suffix,
		in.Account.Id.Prefix,
		0,
		in.Account.Nonce,
	)

	pushWord(&stack, in.Account.Vault.Root())
	pushWord(&stack, in.Account.Storage.Commitment())
	pushWord(&stack, in.Account.Code.Commitment(h))

	stack = append(stack, crypto.NewFelt(uint64(len(in.InputNotes))))

	pushWord(&stack, in.Args.ScriptRoot)
	pushWord(&stack, in.Args.ScriptArgs)
	pushWord(&stack, in.Args.AuthArgs)

	return stack
}

// addCodeAndStorageEntries records the account's code and storage header
// under their own commitments (spec.md sec.4.4's "code_commitment ->
// procedure records" and "storage_commitment -> header").
func addCodeAndStorageEntries(h crypto.Hasher, in Inputs, advMap *AdviceMap) error {
	codeCommitment := in.Account.Code.Commitment(h)
	codeEntries := make([]crypto.Felt, 0, len(in.Account.Code.Procedures)*6)
	for _, p := range in.Account.Code.Procedures {
		codeEntries = append(codeEntries, p.MastRoot[:]...)
		codeEntries = append(codeEntries,
			crypto.NewFelt(uint64(p.StorageOffset)),
			crypto.NewFelt(uint64(p.StorageSize)),
			0, 0,
		)
	}
	if err := advMap.Insert(codeCommitment, codeEntries); err != nil {
		return err
	}

	storageCommitment := in.Account.Storage.Commitment()
	header := in.Account.Storage.Header()
	storageEntries := make([]crypto.Felt, 0, len(header)*5)
	for _, e := range header {
		storageEntries = append(storageEntries, crypto.Felt(e.Tag))
		storageEntries = append(storageEntries, e.Commitment[:]...)
	}
	return advMap.Insert(storageCommitment, storageEntries)
}

// leafHashOf recomputes the single-entry leaf hash an smt.Witness attests
// to, the same formula smt.Witness.Verify uses internally.
func leafHashOf(h crypto.Hasher, w smt.Witness) crypto.Word {
	if w.Value.IsZero() {
		return h.HashElements(nil)
	}
	elements := make([]crypto.Felt, 0, 8)
	elements = append(elements, w.Key[:]...)
	elements = append(elements, w.Value[:]...)
	return h.HashElements(elements)
}

// addVaultEntries records every asset witness the partial vault has opened
// so far as a leaf_hash -> (key, value) advice map entry, and folds the
// witness's authentication path into the merkle store (spec.md sec.4.4
// "opened vault leaves").
func addVaultEntries(h crypto.Hasher, in Inputs, advMap *AdviceMap, store *MerkleStore) error {
	if in.PartialVault == nil {
		return nil
	}
	var outerErr error
	in.PartialVault.Opened()(func(w smt.Witness) bool {
		leaf := leafHashOf(h, w)
		value := make([]crypto.Felt, 0, 8)
		value = append(value, w.Key[:]...)
		value = append(value, w.Value[:]...)
		if err := advMap.Insert(leaf, value); err != nil {
			outerErr = err
			return false
		}
		store.AddSmtWitness(h, w)
		return true
	})
	return outerErr
}

// addStorageMapEntries does the same for every storage-map leaf opened
// across every Map slot the partial storage projection has touched
// (spec.md sec.4.4 "opened storage-map leaves").
func addStorageMapEntries(h crypto.Hasher, in Inputs, advMap *AdviceMap, store *MerkleStore) error {
	if in.PartialStorage == nil {
		return nil
	}
	var outerErr error
	in.PartialStorage.Maps()(func(root crypto.Word, m *partial.StorageMap) bool {
		m.Opened()(func(w smt.Witness) bool {
			leaf := leafHashOf(h, w)
			value := make([]crypto.Felt, 0, 8)
			value = append(value, w.Key[:]...)
			value = append(value, w.Value[:]...)
			if err := advMap.Insert(leaf, value); err != nil {
				outerErr = err
				return false
			}
			store.AddSmtWitness(h, w)
			return true
		})
		return outerErr == nil
	})
	return outerErr
}

// addInputNoteEntries records each input note's recipient-inputs list and
// asset list under their own commitments, plus one aggregated
// input_notes_commitment entry that concatenates every note's full
// commitment_for_advice record in positional order (spec.md sec.4.4
// "input_notes_commitment -> [per-note CommitmentForAdvice records]").
// Authenticated notes also contribute their inclusion path to the merkle
// store.
func addInputNoteEntries(h crypto.Hasher, in Inputs, advMap *AdviceMap) error {
	if len(in.InputNotes) == 0 {
		return nil
	}
	noteIds := make([]crypto.Felt, 0, len(in.InputNotes)*4)
	aggregated := make([]crypto.Felt, 0, len(in.InputNotes)*32)
	for _, inote := range in.InputNotes {
		n := inote.Note
		inputsCommitment := n.Recipient.InputsCommitment(h)
		if err := advMap.Insert(inputsCommitment, n.Recipient.Inputs); err != nil {
			return err
		}
		assetsCommitment := n.AssetsCommitment(h)
		if err := advMap.Insert(assetsCommitment, n.AssetsForAdvice(h)); err != nil {
			return err
		}

		noteArg := in.Args.NoteArgs[n.Id(h)]
		record := n.CommitmentForAdvice(h, noteArg, inote.Authenticated)
		aggregated = append(aggregated, record...)

		id := n.Id(h)
		noteIds = append(noteIds, id[:]...)
	}
	inputNotesCommitment := h.HashElements(noteIds)
	return advMap.Insert(inputNotesCommitment, aggregated)
}

// addBlockchainEntries records the chain's current peak set under its own
// root, and folds in any authenticated input notes' block inclusion paths
// into the merkle store (spec.md sec.4.4 "mmr_root -> [num_leaves, peaks...]").
func addBlockchainEntries(h crypto.Hasher, in Inputs, advMap *AdviceMap, store *MerkleStore) error {
	if in.Context.Blockchain == nil {
		return nil
	}
	chainRoot := in.Context.Blockchain.Root()
	peaks := in.Context.Blockchain.Peaks()
	value := make([]crypto.Felt, 0, 4+len(peaks)*4)
	value = append(value, crypto.NewFelt(in.Context.Blockchain.NumLeaves()), 0, 0, 0)
	for _, p := range peaks {
		value = append(value, p[:]...)
	}
	if err := advMap.Insert(chainRoot, value); err != nil {
		return err
	}

	for _, inote := range in.InputNotes {
		if !inote.Authenticated || inote.Proof == nil {
			continue
		}
		store.AddSmtWitness(h, inote.Proof.Witness)
	}
	return nil
}
