package account

import "rollup.dev/kernel/crypto"

// Build assembles an Account from components (spec.md sec.5 "build(components,
// account_type, storage_mode, seed) -> Account").
//
// Composition rules: the first component must expose exactly one
// authentication procedure; later components must expose none; slots of
// component i occupy offsets [sum sizes_<i, sum sizes_<=i); for faucet
// accounts the reserved slot 0 is owned by the kernel, so component slot
// layout starts at offset 1 and no component procedure may declare a
// non-empty storage window starting at offset 0. A faucet procedure with
// offset 0 and storage size 0 is accepted.
func Build(h crypto.Hasher, components []Component, t Type, mode StorageMode, seed crypto.Word) (*Account, error) {
	if !t.valid() {
		return nil, newErr(ErrInvalidStorageMode, "unknown account type")
	}
	if !mode.valid() {
		return nil, newErr(ErrInvalidStorageMode, "unknown storage mode")
	}
	if len(components) == 0 {
		return nil, newErr(ErrNoAuthProcedure, "account must have at least one component")
	}

	for i, c := range components {
		if !c.supports(t) {
			return nil, newErr(ErrComponentTypeMismatch, "component does not support the requested account type")
		}
		if i == 0 {
			if c.authCount() != 1 {
				return nil, newErr(ErrNoAuthProcedure, "first component must expose exactly one authentication procedure")
			}
		} else if c.authCount() != 0 {
			return nil, newErr(ErrMultipleAuthProcedures, "only the first component may expose an authentication procedure")
		}
	}

	var procedures []Procedure
	mastSeen := map[crypto.Word]bool{}
	var slots []Slot
	offset := uint8(0)
	if t.IsFaucet() {
		slots = append(slots, NewFaucetReservedSlot(h, t))
		offset = 1
	}
	for _, c := range components {
		for _, p := range c.Procedures {
			if mastSeen[p.MastRoot] {
				return nil, newErr(ErrDuplicateMastRoot, "two procedures share a MAST root")
			}
			mastSeen[p.MastRoot] = true
			if t.IsFaucet() && p.StorageOffset == 0 && p.StorageSize > 0 {
				return nil, newErr(ErrFaucetReservedSlot, "no component procedure may declare a window into the reserved slot 0")
			}
			if p.storageEnd() > 255 {
				return nil, newErr(ErrStorageOutOfBounds, "procedure storage window exceeds 255")
			}
			procedures = append(procedures, p)
		}
		for i := 0; i < int(c.SlotCount); i++ {
			if i < len(c.InitialSlots) {
				slots = append(slots, c.InitialSlots[i])
			} else {
				slots = append(slots, NewValueSlot(crypto.Zero))
			}
		}
		offset += c.SlotCount
	}

	if len(procedures) == 0 || len(procedures) > MaxNumProcedures {
		return nil, newErr(ErrProcedureCountOOB, "total procedure count out of bounds")
	}
	if len(slots) > 255 {
		return nil, newErr(ErrSlotCountOOB, "total storage slot count exceeds 255")
	}

	code := Code{Procedures: procedures}
	storage := NewStorage(h, slots)
	vault := NewVault(h)

	codeCommitment := code.Commitment(h)
	storageCommitment := storage.Commitment()

	id, err := DeriveId(h, seed, t, mode, codeCommitment, storageCommitment)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		Id:      id,
		Vault:   vault,
		Storage: storage,
		Code:    code,
		Nonce:   0,
		Seed:    &seed,
	}
	return acc, nil
}
