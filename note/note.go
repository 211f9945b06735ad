// Package note implements the note identity, nullifier derivation, and
// advice-provider serialization for the value-carrying objects transactions
// consume and produce (spec.md sec.3 "Note", sec.4.2 "NoteModel").
package note

import (
	"math"
	"sort"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/crypto"
)

// MaxNumAssets and MaxInputsPerNote bound a note's asset list and script
// input list (spec.md sec.3).
const (
	MaxNumAssets     = 255
	MaxInputsPerNote = 128
)

// Type is a note's visibility (spec.md sec.3 "type ∈ {Public, Private,
// Encrypted}").
type Type uint8

const (
	TypePublic Type = iota
	TypePrivate
	TypeEncrypted
)

// Tag classifies which consumers a note targets. Its top two bits select a
// use-case class; a Public class requires Type == TypePublic, and a Network
// class requires the low 16 bits be zero (the "network tag length fixed"
// invariant in spec.md sec.3).
type Tag uint32

const (
	tagClassPublic  = 0
	tagClassNetwork = 1
)

func (t Tag) class() uint32 { return uint32(t) >> 30 }

// ValidateForType checks t against note type per spec.md sec.3's "note tag
// must be consistent with type" invariant.
func (t Tag) ValidateForType(typ Type) error {
	switch t.class() {
	case tagClassPublic:
		if typ != TypePublic {
			return newErr(ErrInconsistentTagType, "public-class tag requires a public note")
		}
	case tagClassNetwork:
		if uint32(t)&0xffff != 0 {
			return newErr(ErrInvalidNetworkTag, "network tag's low 16 bits must be zero")
		}
	}
	return nil
}

// HintTag selects an ExecutionHint variant.
type HintTag uint8

const (
	HintAlways HintTag = iota
	HintAfterBlock
	HintOnBlockSlot
)

// ExecutionHint tells a note-consuming client when a note becomes eligible
// for execution.
type ExecutionHint struct {
	Tag     HintTag
	Payload uint32
}

// Validate rejects the one documented malformed combination (spec.md Open
// Question, resolved: AfterBlock at u32::MAX is rejected explicitly since
// there is no "block after the last possible block" to wait for).
func (h ExecutionHint) Validate() error {
	if h.Tag == HintAfterBlock && h.Payload == math.MaxUint32 {
		return newErr(ErrInvalidExecutionHint, "AfterBlock execution hint must not target block u32::MAX")
	}
	return nil
}

func (h ExecutionHint) felt() crypto.Felt {
	return crypto.NewFelt(uint64(h.Tag)<<32 | uint64(h.Payload))
}

// Metadata carries a note's sender, visibility, routing tag, execution hint,
// and auxiliary data (spec.md sec.3).
type Metadata struct {
	Sender    account.Id
	Type      Type
	Tag       Tag
	Hint      ExecutionHint
	Aux       crypto.Felt
}

// Word packs metadata into the single commitment word the kernel's advice
// layout embeds (spec.md sec.4.2's "metadata_word").
func (m Metadata) Word(h crypto.Hasher) crypto.Word {
	elements := []crypto.Felt{
		m.Sender.Prefix,
		m.Sender.Suffix,
		crypto.NewFelt(uint64(m.Type)),
		crypto.NewFelt(uint64(m.Tag)),
		m.Hint.felt(),
		m.Aux,
	}
	return h.HashElements(elements)
}

// Recipient is the part of a note that determines who may consume it and
// under what script (spec.md sec.3 "recipient = (serial_num, script,
// inputs)").
type Recipient struct {
	SerialNum  crypto.Word
	ScriptRoot crypto.Word
	Inputs     []crypto.Felt
}

// InputsCommitment hashes the script's input list.
func (r Recipient) InputsCommitment(h crypto.Hasher) crypto.Word {
	return h.HashElements(r.Inputs)
}

// Digest is the recipient_digest NoteId is derived from.
func (r Recipient) Digest(h crypto.Hasher) crypto.Word {
	inputsCommitment := r.InputsCommitment(h)
	return h.Hash2(r.SerialNum, h.Hash2(r.ScriptRoot, inputsCommitment))
}

// Note is the unit of value movement between accounts (spec.md sec.3
// "Note = (assets, metadata, recipient)").
type Note struct {
	Assets    []asset.Asset
	Metadata  Metadata
	Recipient Recipient
}

// Build validates and constructs a Note (spec.md sec.4.2's "build(...) with
// all invariants listed in sec.3").
func Build(h crypto.Hasher, sender account.Id, typ Type, tag Tag, hint ExecutionHint, aux crypto.Felt, serialNum, scriptRoot crypto.Word, inputs []crypto.Felt, assets []asset.Asset) (Note, error) {
	if len(assets) > MaxNumAssets {
		return Note{}, newErr(ErrTooManyAssets, "note asset count exceeds MAX_NUM_ASSETS")
	}
	if len(inputs) > MaxInputsPerNote {
		return Note{}, newErr(ErrTooManyInputs, "note input count exceeds MAX_INPUTS_PER_NOTE")
	}
	if err := tag.ValidateForType(typ); err != nil {
		return Note{}, err
	}
	if err := hint.Validate(); err != nil {
		return Note{}, err
	}
	seen := map[crypto.Word]bool{}
	for _, a := range assets {
		key := a.VaultKey(h)
		if seen[key] {
			return Note{}, newErr(ErrDuplicateAsset, "note contains the same vault key twice")
		}
		seen[key] = true
	}
	return Note{
		Assets: append([]asset.Asset(nil), assets...),
		Metadata: Metadata{
			Sender: sender,
			Type:   typ,
			Tag:    tag,
			Hint:   hint,
			Aux:    aux,
		},
		Recipient: Recipient{
			SerialNum:  serialNum,
			ScriptRoot: scriptRoot,
			Inputs:     append([]crypto.Felt(nil), inputs...),
		},
	}, nil
}

// AssetsForAdvice returns the note's (vault_key, encoded_value) pairs,
// flattened and sorted by vault key, the same element list AssetsCommitment
// hashes and the form the advice map stores an assets_commitment entry's
// value under (spec.md sec.4.4's "assets_commitment -> padded_assets").
func (n Note) AssetsForAdvice(h crypto.Hasher) []crypto.Felt {
	type entry struct {
		key crypto.Word
		val crypto.Word
	}
	entries := make([]entry, len(n.Assets))
	for i, a := range n.Assets {
		entries[i] = entry{key: a.VaultKey(h), val: asset.EncodeForAdvice(h, a)}
	}
	sort.Slice(entries, func(i, j int) bool {
		ib, jb := entries[i].key.Bytes(), entries[j].key.Bytes()
		for k := range ib {
			if ib[k] != jb[k] {
				return ib[k] < jb[k]
			}
		}
		return false
	})
	elements := make([]crypto.Felt, 0, len(entries)*8)
	for _, e := range entries {
		elements = append(elements, e.key[:]...)
		elements = append(elements, e.val[:]...)
	}
	return elements
}

// AssetsCommitment hashes the note's asset list, sorted by vault key so the
// commitment is independent of construction order.
func (n Note) AssetsCommitment(h crypto.Hasher) crypto.Word {
	return h.HashElements(n.AssetsForAdvice(h))
}

// Id is the note's identity: hash(recipient_digest || assets_commitment)
// (spec.md sec.3).
func (n Note) Id(h crypto.Hasher) crypto.Word {
	return h.Hash2(n.Recipient.Digest(h), n.AssetsCommitment(h))
}

// Nullifier is the deterministic spent-marker for this note: hash(serial_num
// || script_root || inputs_commitment || assets_commitment) (spec.md sec.3).
func (n Note) Nullifier(h crypto.Hasher) crypto.Word {
	inputsCommitment := n.Recipient.InputsCommitment(h)
	assetsCommitment := n.AssetsCommitment(h)
	elements := make([]crypto.Felt, 0, 16)
	elements = append(elements, n.Recipient.SerialNum[:]...)
	elements = append(elements, n.Recipient.ScriptRoot[:]...)
	elements = append(elements, inputsCommitment[:]...)
	elements = append(elements, assetsCommitment[:]...)
	return h.HashElements(elements)
}

// CommitmentForAdvice returns the ordered field-element list the kernel
// ingests into the advice provider for this note, given the per-consumption
// note_arg and whether the note is being consumed in authenticated form
// (spec.md sec.4.2's commitment_for_advice concatenation).
func (n Note) CommitmentForAdvice(h crypto.Hasher, noteArg crypto.Word, isAuthenticated bool) []crypto.Felt {
	inputsCommitment := n.Recipient.InputsCommitment(h)
	assetsCommitment := n.AssetsCommitment(h)
	metadataWord := n.Metadata.Word(h)

	elements := make([]crypto.Felt, 0, 32+len(n.Assets)*4)
	elements = append(elements, n.Recipient.SerialNum[:]...)
	elements = append(elements, n.Recipient.ScriptRoot[:]...)
	elements = append(elements, inputsCommitment[:]...)
	elements = append(elements, assetsCommitment[:]...)
	elements = append(elements, noteArg[:]...)
	elements = append(elements, metadataWord[:]...)
	elements = append(elements, crypto.NewFelt(uint64(len(n.Recipient.Inputs))))
	elements = append(elements, crypto.NewFelt(uint64(len(n.Assets))))
	for _, a := range n.Assets {
		enc := asset.EncodeForAdvice(h, a)
		elements = append(elements, enc[:]...)
	}
	flag := crypto.Felt(0)
	if isAuthenticated {
		flag = 1
	}
	elements = append(elements, flag)
	return elements
}
