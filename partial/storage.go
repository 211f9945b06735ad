package partial

import (
	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/smt"
)

// StorageMap is the lazily-populated projection of a single AccountStorage
// Map slot.
type StorageMap struct {
	root   crypto.Word
	opened map[crypto.Word]smt.Witness
}

func newStorageMap(root crypto.Word) *StorageMap {
	return &StorageMap{root: root, opened: map[crypto.Word]smt.Witness{}}
}

func (m *StorageMap) Root() crypto.Word { return m.root }

func (m *StorageMap) Insert(h crypto.Hasher, w smt.Witness) error {
	if !w.Verify(h, m.root) {
		return newErr(ErrRootMismatch, "storage map witness does not verify against the map's root")
	}
	m.opened[w.Key] = w
	return nil
}

func (m *StorageMap) IsTracked(key crypto.Word) bool {
	_, ok := m.opened[key]
	return ok
}

func (m *StorageMap) Get(key crypto.Word) (crypto.Word, bool) {
	w, ok := m.opened[key]
	if !ok {
		return crypto.Zero, false
	}
	return w.Value, true
}

// Opened is an opaque iterator over the witnesses opened in this map.
func (m *StorageMap) Opened() func(yield func(smt.Witness) bool) {
	return func(yield func(smt.Witness) bool) {
		for _, w := range m.opened {
			if !yield(w) {
				return
			}
		}
	}
}

// Storage is a projection of an account.Storage: the full header (tags +
// per-slot commitments, which is small and cheap to carry whole) plus a
// lazily-populated StorageMap per Map slot that has actually been opened
// (spec.md sec.7 "PartialStorage: header + map from map root to
// PartialStorageMap; commitment recomputed from header on load").
type Storage struct {
	hasher crypto.Hasher
	header []account.HeaderEntry
	maps   map[crypto.Word]*StorageMap
}

func NewStorage(h crypto.Hasher, header []account.HeaderEntry) *Storage {
	return &Storage{hasher: h, header: append([]account.HeaderEntry(nil), header...), maps: map[crypto.Word]*StorageMap{}}
}

// Commitment recomputes the storage commitment from the header, the same
// way the full Storage type does.
func (s *Storage) Commitment() crypto.Word {
	elements := make([]crypto.Felt, 0, len(s.header)*5)
	for _, e := range s.header {
		elements = append(elements, crypto.Felt(e.Tag))
		elements = append(elements, e.Commitment[:]...)
	}
	return s.hasher.HashElements(elements)
}

// OpenMap returns (creating if necessary) the StorageMap projection for the
// map slot whose current root is root.
func (s *Storage) OpenMap(root crypto.Word) *StorageMap {
	m, ok := s.maps[root]
	if !ok {
		m = newStorageMap(root)
		s.maps[root] = m
	}
	return m
}

// Maps is an opaque iterator over the per-slot StorageMap projections that
// have actually been opened.
func (s *Storage) Maps() func(yield func(root crypto.Word, m *StorageMap) bool) {
	return func(yield func(root crypto.Word, m *StorageMap) bool) {
		for root, m := range s.maps {
			if !yield(root, m) {
				return
			}
		}
	}
}

// All is an opaque, read-only iterator over the storage header: this
// package deliberately does not expose its internal map/slice layout for
// direct mutation (spec.md Open Question, resolved in favor of an opaque
// iterator over `into_parts`).
func (s *Storage) All() func(yield func(index int, entry account.HeaderEntry) bool) {
	return func(yield func(index int, entry account.HeaderEntry) bool) {
		for i, e := range s.header {
			if !yield(i, e) {
				return
			}
		}
	}
}
