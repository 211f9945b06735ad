package account

import (
	"rollup.dev/kernel/crypto"
)

// Type is the account-type bit-field packed into an AccountId's prefix.
type Type uint8

const (
	TypeRegularUpdatable  Type = 0
	TypeRegularImmutable  Type = 1
	TypeFungibleFaucet    Type = 2
	TypeNonFungibleFaucet Type = 3
)

func (t Type) IsFaucet() bool {
	return t == TypeFungibleFaucet || t == TypeNonFungibleFaucet
}

func (t Type) valid() bool {
	return t <= TypeNonFungibleFaucet
}

// StorageMode is the visibility bit-field packed into an AccountId's prefix.
type StorageMode uint8

const (
	StoragePublic  StorageMode = 0
	StoragePrivate StorageMode = 1
)

func (m StorageMode) valid() bool {
	return m == StoragePublic || m == StoragePrivate
}

// IdVersion identifies the AccountId encoding scheme in force. Only version
// 0 is currently defined.
const IdVersion0 uint8 = 0

// MinGrindTrailingZeros is the minimum trailing-zero-bit count a seed word's
// derived digest must exhibit for the id to be considered validly grinded
// (spec.md sec.3, sec.6: "seed grind did not produce the required
// trailing-zero count"). A production kernel would set this high enough to
// bound account-id malleability at real proving cost; this development
// value keeps seed search trivially fast.
const MinGrindTrailingZeros = 8

// metaByte packs {account_type (bits 0-1), storage_mode (bits 2-3), version
// (bits 4-7)} into the low byte of the prefix felt, the way the teacher's
// covenant-tag byte packs {kind, flags} into one wire byte
// (consensus/tx.go's CORE_* constant table).
func metaByte(t Type, m StorageMode, version uint8) byte {
	return byte(t) | byte(m)<<2 | version<<4
}

func unpackMetaByte(b byte) (Type, StorageMode, uint8) {
	return Type(b & 0x3), StorageMode((b >> 2) & 0x3), b >> 4
}

// Id is an account's identity: a (prefix, suffix) pair of field elements.
// The prefix's low byte carries {account_type, storage_mode, id_version};
// the suffix's most-significant bit and least-significant byte are reserved
// and must be zero (spec.md sec.3).
type Id struct {
	Prefix crypto.Felt
	Suffix crypto.Felt
}

func (id Id) Type() Type {
	t, _, _ := unpackMetaByte(byte(id.Prefix))
	return t
}

func (id Id) StorageMode() StorageMode {
	_, m, _ := unpackMetaByte(byte(id.Prefix))
	return m
}

func (id Id) Version() uint8 {
	_, _, v := unpackMetaByte(byte(id.Prefix))
	return v
}

func (id Id) IsFaucet() bool { return id.Type().IsFaucet() }

// Validate checks the structural invariants an Id must satisfy regardless of
// how it was constructed: known type/storage-mode/version bits, suffix MSB
// zero, suffix LSB byte zero.
func (id Id) Validate() error {
	t, m, v := unpackMetaByte(byte(id.Prefix))
	if !t.valid() {
		return newErr(ErrInvalidStorageMode, "unknown account type bits")
	}
	if !m.valid() {
		return newErr(ErrInvalidStorageMode, "unknown storage mode bits")
	}
	if v != IdVersion0 {
		return newErr(ErrInvalidVersion, "unknown id version")
	}
	su := uint64(id.Suffix)
	if su&(1<<63) != 0 {
		return newErr(ErrInvalidSuffix, "suffix MSB must be zero")
	}
	if su&0xff != 0 {
		return newErr(ErrInvalidSuffix, "suffix LSB byte must be zero")
	}
	return nil
}

// Word packs id into the canonical (suffix, prefix, 0, 0) word the kernel
// pushes onto the stack/advice map wherever an AccountId is referenced as a
// single commitment-shaped value (spec.md sec.4.4's
// "[acct_id_suffix, acct_id_prefix, 0, nonce]" stack entries generalize
// this layout with a populated nonce slot).
func (id Id) Word() crypto.Word {
	return crypto.Word{id.Suffix, id.Prefix, 0, 0}
}

// DeriveId computes the AccountId that results from grinding seed against
// (version, codeCommitment, storageCommitment), the way a new account's id
// is derived before nonce-zero initialization (spec.md sec.3's
// "recomputing AccountId from (seed, version, code_commitment,
// storage_commitment) must yield id").
func DeriveId(h crypto.Hasher, seed crypto.Word, t Type, mode StorageMode, codeCommitment, storageCommitment crypto.Word) (Id, error) {
	digest := h.Hash2(seed, h.Hash2(codeCommitment, storageCommitment))
	if digest.TrailingZeroBits() < MinGrindTrailingZeros {
		return Id{}, newErr(ErrSeedGrindInsufficient, "seed grind did not reach the minimum trailing-zero count")
	}
	prefix := crypto.NewFelt((uint64(digest[0]) &^ 0xff) | uint64(metaByte(t, mode, IdVersion0)))
	suffix := crypto.NewFelt(uint64(digest[1]) &^ (1<<63 | 0xff))
	id := Id{Prefix: prefix, Suffix: suffix}
	if err := id.Validate(); err != nil {
		return Id{}, err
	}
	return id, nil
}
