package testutil

import (
	"context"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
)

// FakeAuthenticator answers every AuthRequest deterministically by hashing
// the requesting account id together with the challenge message, standing
// in for a real signature scheme (spec.md sec.4.5 leaves the scheme itself
// out of the kernel's scope).
type FakeAuthenticator struct {
	Hasher crypto.Hasher
	Err    error
}

func NewFakeAuthenticator(h crypto.Hasher) *FakeAuthenticator {
	return &FakeAuthenticator{Hasher: h}
}

func (a *FakeAuthenticator) Authenticate(ctx context.Context, id account.Id, message crypto.Word) (crypto.Word, error) {
	if a.Err != nil {
		return crypto.Zero, a.Err
	}
	return a.Hasher.Hash2(id.Word(), message), nil
}
