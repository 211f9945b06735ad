package account

import (
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
)

// SlotKind distinguishes the two StorageSlot variants (spec.md sec.3
// "AccountStorage. An ordered vector of StorageSlot of two variants").
type SlotKind uint8

const (
	SlotValue SlotKind = 0
	SlotMap   SlotKind = 1
)

// Slot is one storage slot: a plain Value word, or a key-value Map backed by
// a sparse Merkle tree.
type Slot struct {
	Kind  SlotKind
	Value crypto.Word
	Map   *smt.Tree
}

func NewValueSlot(v crypto.Word) Slot { return Slot{Kind: SlotValue, Value: v} }

func NewMapSlot(h crypto.Hasher) Slot { return Slot{Kind: SlotMap, Map: smt.New(h)} }

// commitment is the word this slot contributes to the storage header: the
// value itself for a Value slot, the map's root for a Map slot.
func (s Slot) commitment() crypto.Word {
	if s.Kind == SlotMap {
		return s.Map.Root()
	}
	return s.Value
}

// Storage is an account's ordered slot vector.
type Storage struct {
	hasher crypto.Hasher
	slots  []Slot
}

func NewStorage(h crypto.Hasher, slots []Slot) *Storage {
	return &Storage{hasher: h, slots: append([]Slot(nil), slots...)}
}

func (s *Storage) Len() int { return len(s.slots) }

func (s *Storage) slot(index uint8) (*Slot, error) {
	if int(index) >= len(s.slots) {
		return nil, newErr(ErrStorageOutOfBounds, "storage slot index out of bounds")
	}
	return &s.slots[index], nil
}

// GetValue reads a Value slot.
func (s *Storage) GetValue(index uint8) (crypto.Word, error) {
	sl, err := s.slot(index)
	if err != nil {
		return crypto.Zero, err
	}
	if sl.Kind != SlotValue {
		return crypto.Zero, newErr(ErrComponentTypeMismatch, "slot is not a Value slot")
	}
	return sl.Value, nil
}

// SetValue overwrites a Value slot.
func (s *Storage) SetValue(index uint8, v crypto.Word) error {
	sl, err := s.slot(index)
	if err != nil {
		return err
	}
	if sl.Kind != SlotValue {
		return newErr(ErrComponentTypeMismatch, "slot is not a Value slot")
	}
	sl.Value = v
	return nil
}

// MapGet reads one key from a Map slot.
func (s *Storage) MapGet(index uint8, key crypto.Word) (crypto.Word, error) {
	sl, err := s.slot(index)
	if err != nil {
		return crypto.Zero, err
	}
	if sl.Kind != SlotMap {
		return crypto.Zero, newErr(ErrComponentTypeMismatch, "slot is not a Map slot")
	}
	v, _ := sl.Map.Get(key)
	return v, nil
}

// MapSet writes one key into a Map slot.
func (s *Storage) MapSet(index uint8, key, value crypto.Word) error {
	sl, err := s.slot(index)
	if err != nil {
		return err
	}
	if sl.Kind != SlotMap {
		return newErr(ErrComponentTypeMismatch, "slot is not a Map slot")
	}
	sl.Map.Set(key, value)
	return nil
}

// OpenMap returns a witness for key within the Map slot at index, against
// that slot's current root (spec.md sec.4.3: storage-map witnesses are
// fetched lazily, one key at a time, as a component actually reads them).
func (s *Storage) OpenMap(index uint8, key crypto.Word) (smt.Witness, error) {
	sl, err := s.slot(index)
	if err != nil {
		return smt.Witness{}, err
	}
	if sl.Kind != SlotMap {
		return smt.Witness{}, newErr(ErrComponentTypeMismatch, "slot is not a Map slot")
	}
	return sl.Map.Open(key), nil
}

// SlotIndexForMapRoot finds the Map slot whose current root is root. Used by
// callers that only learned a map's root (e.g. from a storage header
// snapshot) and need to resolve it back to a slot index to open a witness.
func (s *Storage) SlotIndexForMapRoot(root crypto.Word) (uint8, bool) {
	for i, sl := range s.slots {
		if sl.Kind == SlotMap && sl.commitment() == root {
			return uint8(i), true
		}
	}
	return 0, false
}

// HeaderEntry is one (slot_type_tag, commitment) pair in the storage header.
type HeaderEntry struct {
	Tag        SlotKind
	Commitment crypto.Word
}

// Header returns the ordered (tag, commitment) list the storage commitment
// hashes over.
func (s *Storage) Header() []HeaderEntry {
	out := make([]HeaderEntry, len(s.slots))
	for i, sl := range s.slots {
		out[i] = HeaderEntry{Tag: sl.Kind, Commitment: sl.commitment()}
	}
	return out
}

// Commitment hashes the storage header (spec.md sec.3 "storage commitment =
// hash of the header").
func (s *Storage) Commitment() crypto.Word {
	header := s.Header()
	elements := make([]crypto.Felt, 0, len(header)*5)
	for _, e := range header {
		elements = append(elements, crypto.Felt(e.Tag))
		elements = append(elements, e.Commitment[:]...)
	}
	return s.hasher.HashElements(elements)
}

// SlotSnapshot is one slot's persistable form: a Value slot's word, or a Map
// slot's flattened entry list (the store package round-trips a Storage
// through these rather than the opaque *smt.Tree a Slot otherwise holds).
type SlotSnapshot struct {
	Kind       SlotKind
	Value      crypto.Word
	MapEntries []smt.Entry
}

// Snapshot returns a persistable copy of s's slot vector.
func (s *Storage) Snapshot() []SlotSnapshot {
	out := make([]SlotSnapshot, len(s.slots))
	for i, sl := range s.slots {
		snap := SlotSnapshot{Kind: sl.Kind, Value: sl.Value}
		if sl.Kind == SlotMap {
			snap.MapEntries = sl.Map.Entries()
		}
		out[i] = snap
	}
	return out
}

// RestoreStorage rebuilds a Storage from a previously exported snapshot.
func RestoreStorage(h crypto.Hasher, snapshots []SlotSnapshot) *Storage {
	slots := make([]Slot, len(snapshots))
	for i, snap := range snapshots {
		if snap.Kind == SlotMap {
			slots[i] = Slot{Kind: SlotMap, Map: smt.FromEntries(h, snap.MapEntries)}
		} else {
			slots[i] = Slot{Kind: SlotValue, Value: snap.Value}
		}
	}
	return &Storage{hasher: h, slots: slots}
}
