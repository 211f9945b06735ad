package executor

import (
	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
)

// EventKind is one of the host-callback events a transaction's execution
// can raise (spec.md sec.4.5 "Host events the kernel raises during
// execution"). The event loop is cooperative: the VM suspends, the host
// resolves whatever data or decision the event needs, and execution
// resumes with the host's response loaded onto the stack/advice provider.
type EventKind int

const (
	// EventAccountPushProcedureIndex asks the host to resolve a MAST root to
	// its index in the executing account's procedure table.
	EventAccountPushProcedureIndex EventKind = iota
	// EventForeignAccount asks the host to load another account's state for
	// a read-only foreign procedure call.
	EventForeignAccount
	// EventAuthRequest asks the host to authenticate the transaction against
	// the executing account's auth procedure.
	EventAuthRequest
	// EventEpilogueBeforeTxFeeRemovedFromAccount fires once, at the end of a
	// successful execution, before the verification fee is deducted.
	EventEpilogueBeforeTxFeeRemovedFromAccount
	// EventAccountVaultAssetWitness asks the host to open a witness for one
	// asset in the executing account's own vault.
	EventAccountVaultAssetWitness
	// EventAccountStorageMapWitness asks the host to open a witness for one
	// key in one of the executing account's own storage Map slots.
	EventAccountStorageMapWitness
	// EventLinkMapGet/EventLinkMapSet operate the VM's transient scratch
	// key-value store (not backed by any merkle commitment; cleared between
	// transactions).
	EventLinkMapGet
	EventLinkMapSet
)

// Event is one occurrence of a host callback, carrying whichever fields its
// Kind actually uses.
type Event struct {
	Kind EventKind

	ProcRoot crypto.Word // EventAccountPushProcedureIndex

	ForeignAccountId account.Id // EventForeignAccount

	PubKeyCommitment crypto.Word // EventAuthRequest
	AuthMessage      crypto.Word // EventAuthRequest, the signing-inputs word

	VaultKey crypto.Word // EventAccountVaultAssetWitness

	StorageMapRoot crypto.Word // EventAccountStorageMapWitness
	StorageMapKey  crypto.Word // EventAccountStorageMapWitness

	LinkKey   crypto.Word // EventLinkMapGet / EventLinkMapSet
	LinkValue crypto.Word // EventLinkMapSet
}

// Response is the host's answer to one Event, carrying whichever fields the
// originating Kind expects back.
type Response struct {
	ProcIndex int // EventAccountPushProcedureIndex

	AuthArgs crypto.Word // EventAuthRequest

	VaultWitnessValue crypto.Word // EventAccountVaultAssetWitness

	StorageWitnessValue crypto.Word // EventAccountStorageMapWitness

	LinkValue crypto.Word // EventLinkMapGet
	LinkFound bool        // EventLinkMapGet
}
