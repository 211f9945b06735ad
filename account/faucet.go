package account

import "rollup.dev/kernel/crypto"

// NewFaucetReservedSlot builds the kernel-owned slot 0 every faucet account
// reserves (spec.md sec.3 "AccountStorage... Faucet accounts reserve slot
// 0: fungible faucets initialize it to the zero word (total issued tokens
// at element 3); non-fungible faucets initialize it to an empty map").
func NewFaucetReservedSlot(h crypto.Hasher, t Type) Slot {
	if t == TypeNonFungibleFaucet {
		return NewMapSlot(h)
	}
	return NewValueSlot(crypto.Zero)
}

// TotalIssued reads the running total-issued counter a fungible faucet
// tracks in its reserved slot 0, element 3.
func (a *Account) TotalIssued() (uint64, error) {
	if a.Id.Type() != TypeFungibleFaucet {
		return 0, newErr(ErrComponentTypeMismatch, "account is not a fungible faucet")
	}
	v, err := a.Storage.GetValue(0)
	if err != nil {
		return 0, err
	}
	return uint64(v[3]), nil
}

// NewFaucetComponent builds the reusable issue/burn Component every faucet
// account composes alongside its authentication component
// (crates/miden-lib/src/account/faucets/mod.rs's standard faucet library,
// generalized here to a procedure-table stand-in since this kernel has no
// MAST compiler of its own: issueRoot/burnRoot name the procedures a real
// assembler would bind to concrete MAST roots).
func NewFaucetComponent(h crypto.Hasher, t Type, issueRoot, burnRoot crypto.Word) Component {
	var supported []Type
	if t == TypeFungibleFaucet {
		supported = []Type{TypeFungibleFaucet}
	} else {
		supported = []Type{TypeNonFungibleFaucet}
	}
	return Component{
		Name: "faucet",
		// Size 0: the issue/burn procedures reach the kernel-reserved slot 0
		// through the faucet runtime path, not through a component-declared
		// storage window, so they declare no window of their own here.
		Procedures: []Procedure{
			{MastRoot: issueRoot, StorageOffset: 0, StorageSize: 0},
			{MastRoot: burnRoot, StorageOffset: 0, StorageSize: 0},
		},
		SlotCount:      0,
		SupportedTypes: supported,
	}
}
