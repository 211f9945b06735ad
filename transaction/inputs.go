// Package transaction bundles a transaction's inputs and builds the VM's
// advice-provider payload from them in a fixed, positional order (spec.md
// sec.4.4 "TransactionAdviceInputs").
package transaction

import (
	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/note"
	"rollup.dev/kernel/partial"
)

// Args carries the caller-supplied, per-transaction arguments the kernel
// does not derive from account/note state: an optional tx script, its
// arguments, the auth-request arguments, and a per-note argument map.
type Args struct {
	ScriptRoot crypto.Word // crypto.Zero if no tx script
	ScriptArgs crypto.Word
	AuthArgs   crypto.Word
	NoteArgs   map[crypto.Word]crypto.Word // keyed by note.Id
}

// Context carries the block-level facts a transaction executes against.
type Context struct {
	RefBlock   partial.BlockHeader
	Blockchain *partial.Blockchain

	// NativeAsset is the faucet id and VerificationBaseFee is the fee rate
	// the kernel charges in that asset (spec.md sec.4.4's
	// "[native_asset_suffix, native_asset_prefix, verification_base_fee, 0]"
	// stack entry).
	NativeAsset         account.Id
	VerificationBaseFee uint64

	// KernelCommitment summarises the kernel's own fixed procedure set
	// (spec.md sec.4.4's "kernel_commitment -> [procedure_roots...]"); the
	// kernel procedure table itself is out of this package's scope, so
	// callers supply its commitment directly.
	KernelCommitment crypto.Word
	ProofCommitment  crypto.Word
}

// Inputs bundles everything one transaction execution needs (spec.md sec.1
// "Account + InputNotes + TxArgs + BlockContext").
type Inputs struct {
	Account        *account.Account
	PartialVault   *partial.Vault
	PartialStorage *partial.Storage
	InputNotes     []note.InputNote
	Context        Context
	Args           Args
	TxCommitment   crypto.Word
}
