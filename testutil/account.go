// Package testutil provides fixture builders and in-memory fakes for
// driving the kernel's proposed -> proven pipeline in tests: account
// construction with seed grinding, a fake DataStore/Authenticator pair, and
// a MockChain that assembles transactions into batches and blocks the same
// way a real node would (spec.md sec.5's "testing harness" concerns,
// grounded on the two-step proposed/proven pipeline of the mock chain
// builder this repo's fixtures are modeled on).
package testutil

import (
	"fmt"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
)

// MaxSeedGrindAttempts bounds how many seeds GrindAccount tries before
// giving up; account.Build only fails the grind check for a small fraction
// of seeds, so this is comfortably more than any single test should need.
const MaxSeedGrindAttempts = 1 << 20

// GrindAccount builds an account from components, trying successive seed
// values (tagged with seedTag so callers building multiple distinct
// accounts in one test don't collide) until one satisfies account.Build's
// seed-grind check.
func GrindAccount(h crypto.Hasher, components []account.Component, t account.Type, mode account.StorageMode, seedTag crypto.Felt) (*account.Account, error) {
	for i := 0; i < MaxSeedGrindAttempts; i++ {
		seed := crypto.Word{crypto.NewFelt(uint64(i)), seedTag, 0, 0}
		acc, err := account.Build(h, components, t, mode, seed)
		if err == nil {
			return acc, nil
		}
		ae, ok := err.(*account.Error)
		if !ok || ae.Code != account.ErrSeedGrindInsufficient {
			return nil, err
		}
	}
	return nil, fmt.Errorf("testutil: failed to grind a valid seed within %d attempts", MaxSeedGrindAttempts)
}

// SingleAuthComponent is the smallest valid component set for
// GrindAccount/account.Build: one authentication procedure and one map
// slot, enough to exercise the auth/foreign-account/vault/storage event
// paths without modeling any real procedure logic.
func SingleAuthComponent(h crypto.Hasher, mastRoot crypto.Word) []account.Component {
	return []account.Component{
		{
			Name: "auth",
			Procedures: []account.Procedure{
				{MastRoot: mastRoot, IsAuth: true},
			},
			SlotCount:    1,
			InitialSlots: []account.Slot{account.NewMapSlot(h)},
		},
	}
}
