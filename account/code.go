package account

import "rollup.dev/kernel/crypto"

// MaxNumProcedures bounds the total procedure count a single account's code
// may declare (spec.md sec.6 "MAX_NUM_PROCEDURES in a single account code").
const MaxNumProcedures = 256

// Procedure is one callable entry in an account's code: a MAST root plus the
// contiguous storage window it is permitted to read/write.
// offset+size must not exceed 255 (spec.md sec.3's per-procedure record
// shape; the record's trailing two elements are structural padding, not
// modeled here since this is an in-memory type, not the wire form).
type Procedure struct {
	MastRoot      crypto.Word
	StorageOffset uint8
	StorageSize   uint8
	IsAuth        bool
}

func (p Procedure) storageEnd() int { return int(p.StorageOffset) + int(p.StorageSize) }

// Component is a reusable bundle of procedures and the contiguous storage
// slots they address, the unit an account's code and storage are built from
// (spec.md sec.3 "AccountComponent").
type Component struct {
	Name           string
	Procedures     []Procedure
	SlotCount      uint8
	InitialSlots   []Slot
	SupportedTypes []Type // empty means "any account type"
}

func (c Component) supports(t Type) bool {
	if len(c.SupportedTypes) == 0 {
		return true
	}
	for _, s := range c.SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

func (c Component) authCount() int {
	n := 0
	for _, p := range c.Procedures {
		if p.IsAuth {
			n++
		}
	}
	return n
}

// Code is an account's flattened, ordered procedure table.
type Code struct {
	Procedures []Procedure
}

// NumProcedures returns the total procedure count.
func (c Code) NumProcedures() int { return len(c.Procedures) }

// HasProcedure reports whether root is present in the code (spec.md sec.3:
// "the kernel verifies that mast_root is present in the account's code").
func (c Code) HasProcedure(root crypto.Word) bool {
	for _, p := range c.Procedures {
		if p.MastRoot == root {
			return true
		}
	}
	return false
}

// IndexOf returns the position of the procedure with the given MAST root in
// the flattened procedure table (spec.md sec.4.5's AccountPushProcedureIndex
// event resolves a MAST root to exactly this index).
func (c Code) IndexOf(root crypto.Word) (int, bool) {
	for i, p := range c.Procedures {
		if p.MastRoot == root {
			return i, true
		}
	}
	return 0, false
}

// Lookup returns the Procedure with the given MAST root, if present.
func (c Code) Lookup(root crypto.Word) (Procedure, bool) {
	for _, p := range c.Procedures {
		if p.MastRoot == root {
			return p, true
		}
	}
	return Procedure{}, false
}

// Commitment summarises the code's procedure table into one Word (spec.md
// sec.3's account commitment recipe consumes this as code_commitment).
func (c Code) Commitment(h crypto.Hasher) crypto.Word {
	elements := make([]crypto.Felt, 0, len(c.Procedures)*4)
	for _, p := range c.Procedures {
		elements = append(elements, p.MastRoot[:]...)
	}
	return h.HashElements(elements)
}
