package executor

import (
	"context"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
	"rollup.dev/kernel/partial"
)

// DataStore is the capability a host needs to resolve data a transaction's
// execution references but did not carry inline: another account's current
// state (for ForeignAccount reads) and historical block headers (for a
// note's authentication path against an older block than the reference
// block). A concrete implementation lives in the store package
// (store.DB); tests and tooling use a fake.
type DataStore interface {
	// ForeignAccount returns the current full state of id, plus a witness of
	// its inclusion in the global account tree rooted at accountRoot.
	ForeignAccount(ctx context.Context, id account.Id, accountRoot crypto.Word) (*account.Account, partial.AccountWitness, error)

	// BlockHeader returns a historical block header plus its MMR inclusion
	// path against the chain rooted at chainRoot.
	BlockHeader(ctx context.Context, blockNum uint32, chainRoot crypto.Word) (partial.BlockHeader, mmr.Path, error)
}

// Authenticator produces the AuthArgs word an account's auth procedure
// expects in response to an AuthRequest event: typically a signature or MAC
// over message, computed by whatever key material the caller's wallet/node
// holds for id. Authentication scheme details are out of this package's
// scope; it only carries the request/response shape the event loop needs.
type Authenticator interface {
	Authenticate(ctx context.Context, id account.Id, message crypto.Word) (crypto.Word, error)
}
