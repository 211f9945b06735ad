package transaction

import "rollup.dev/kernel/crypto"

// AdviceMap is the advice-provider's key to value-vector map (spec.md
// sec.4.4 "Advice map entries (key -> value vector)"). Merges are
// conflict-free or fatal: two insertions under the same key must agree
// element-for-element, there is no "last writer wins" (spec.md sec.4.5
// "Ordering guarantees").
type AdviceMap struct {
	entries map[crypto.Word][]crypto.Felt
}

func NewAdviceMap() *AdviceMap {
	return &AdviceMap{entries: map[crypto.Word][]crypto.Felt{}}
}

// Insert adds key -> value, or, if key is already present, requires the
// existing entry be identical.
func (m *AdviceMap) Insert(key crypto.Word, value []crypto.Felt) error {
	if existing, ok := m.entries[key]; ok {
		if !feltsEqual(existing, value) {
			return newErr(ErrConflictingAdviceEntry, "advice map key already holds a different value")
		}
		return nil
	}
	m.entries[key] = append([]crypto.Felt(nil), value...)
	return nil
}

// Get returns the value stored at key, if any.
func (m *AdviceMap) Get(key crypto.Word) ([]crypto.Felt, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Len reports the number of distinct keys.
func (m *AdviceMap) Len() int { return len(m.entries) }

func feltsEqual(a, b []crypto.Felt) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
