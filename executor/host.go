package executor

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/transaction"
)

// Host drives a transaction's cooperative VM/host event loop: it answers
// whatever AccountPushProcedureIndex/ForeignAccount/AuthRequest/
// EpilogueBeforeTxFeeRemovedFromAccount/AccountVaultAssetWitness/
// AccountStorageMapWitness/LinkMapGet/LinkMapSet events the execution raises
// (spec.md sec.4.5), accumulating the account delta and fee as it goes.
type Host struct {
	hasher crypto.Hasher
	store  DataStore
	auth   Authenticator
	opts   Options
	log    *slog.Logger
	mx     *metrics

	foreign *foreignCache
}

// NewHost constructs a Host. A nil store/auth is valid only for event
// traces that never raise the corresponding event kind.
func NewHost(h crypto.Hasher, store DataStore, auth Authenticator, opts Options) (*Host, error) {
	if opts.CycleBudget == 0 && opts.ForeignAccountCacheSize == 0 && opts.Logger == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	size := opts.ForeignAccountCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[account.Id, foreignEntry](size)
	if err != nil {
		return nil, err
	}
	var mx *metrics
	if opts.Registerer != nil {
		mx, err = newMetrics(opts.Registerer)
		if err != nil {
			return nil, err
		}
	} else {
		mx, _ = newMetrics(nil)
	}
	return &Host{
		hasher:  h,
		store:   store,
		auth:    auth,
		opts:    opts,
		log:     opts.Logger,
		mx:      mx,
		foreign: cache,
	}, nil
}

// Session tracks the mutable state one transaction execution accumulates as
// its event loop runs: the running account delta, fee charged, foreign
// accounts touched, the cycle count, and the VM's transient link-map
// scratch store.
type Session struct {
	Inputs          *transaction.Inputs
	Delta           account.Delta
	FeeCharged      uint64
	ForeignAccounts map[account.Id]*account.Account
	CyclesUsed      uint64

	// AccessedForeignAccountCode lists, in first-access order, the code of
	// every foreign account this session loaded (spec.md sec.4.5's
	// ForeignAccount event response: "append to
	// accessed_foreign_account_code").
	AccessedForeignAccountCode []account.Code

	foreignSeen map[account.Id]bool

	// GeneratedSignatures records hash(pub_key_commitment ‖ signing_inputs)
	// -> signature for every AuthRequest answered this session, so the
	// transaction can later be merged back into its advice inputs and
	// re-executed deterministically without the authenticator (spec.md
	// sec.4.5's AuthRequest row, sec.4.6's "merges generated_signatures").
	GeneratedSignatures map[crypto.Word]crypto.Word

	linkMap map[crypto.Word]crypto.Word
}

// NewSession starts a fresh execution session over in.
func NewSession(in *transaction.Inputs) *Session {
	return &Session{
		Inputs:              in,
		Delta:               account.NewDelta(in.Account.Id),
		ForeignAccounts:     map[account.Id]*account.Account{},
		GeneratedSignatures: map[crypto.Word]crypto.Word{},
		linkMap:             map[crypto.Word]crypto.Word{},
		foreignSeen:         map[account.Id]bool{},
	}
}

// HandleEvent answers a single host event, mutating sess as a side effect
// (account delta growth, fee deduction, opened witnesses merged into the
// session's partial projections, foreign accounts cached).
func (h *Host) HandleEvent(ctx context.Context, sess *Session, ev Event) (Response, error) {
	sess.CyclesUsed++
	if h.mx != nil {
		h.mx.eventsHandled.Inc()
		h.mx.cyclesUsed.Inc()
	}
	if h.opts.CycleBudget > 0 && sess.CyclesUsed > h.opts.CycleBudget {
		return Response{}, newErr(ErrCycleBudgetExceeded, "transaction execution exceeded its cycle budget")
	}

	switch ev.Kind {
	case EventAccountPushProcedureIndex:
		return h.handlePushProcedureIndex(sess, ev)
	case EventForeignAccount:
		return h.handleForeignAccount(ctx, sess, ev)
	case EventAuthRequest:
		return h.handleAuthRequest(ctx, sess, ev)
	case EventEpilogueBeforeTxFeeRemovedFromAccount:
		return h.handleEpilogueFee(sess)
	case EventAccountVaultAssetWitness:
		return h.handleVaultWitness(sess, ev)
	case EventAccountStorageMapWitness:
		return h.handleStorageWitness(sess, ev)
	case EventLinkMapGet:
		v, ok := sess.linkMap[ev.LinkKey]
		return Response{LinkValue: v, LinkFound: ok}, nil
	case EventLinkMapSet:
		sess.linkMap[ev.LinkKey] = ev.LinkValue
		return Response{}, nil
	default:
		return Response{}, newErr(ErrUnhandledEvent, "unrecognized event kind")
	}
}

func (h *Host) handlePushProcedureIndex(sess *Session, ev Event) (Response, error) {
	idx, ok := sess.Inputs.Account.Code.IndexOf(ev.ProcRoot)
	if !ok {
		return Response{}, newErr(ErrUnknownProcedure, "mast root is not present in the account's code")
	}
	return Response{ProcIndex: idx}, nil
}

func (h *Host) handleForeignAccount(ctx context.Context, sess *Session, ev Event) (Response, error) {
	root := sess.Inputs.Context.RefBlock.AccountRoot
	var acc *account.Account
	if entry, ok := h.foreign.Get(ev.ForeignAccountId); ok && entry.root == root {
		if h.mx != nil {
			h.mx.foreignHits.Inc()
		}
		acc = entry.account
	} else {
		if h.mx != nil {
			h.mx.foreignMisses.Inc()
		}
		if h.store == nil {
			return Response{}, newErr(ErrForeignAccountFetch, "no data store configured to resolve a foreign account")
		}
		fetched, witness, err := h.store.ForeignAccount(ctx, ev.ForeignAccountId, root)
		if err != nil {
			return Response{}, newErr(ErrForeignAccountFetch, err.Error())
		}
		if !witness.Verify(h.hasher, root) {
			return Response{}, newErr(ErrForeignWitnessBad, "foreign account witness does not verify against the reference block's account root")
		}
		if witness.StateCommitment != fetched.Commitment(h.hasher) {
			return Response{}, newErr(ErrForeignWitnessBad, "foreign account witness commitment does not match the fetched account state")
		}
		h.foreign.Add(ev.ForeignAccountId, foreignEntry{account: fetched, root: root})
		acc = fetched
	}

	sess.ForeignAccounts[ev.ForeignAccountId] = acc
	if !sess.foreignSeen[ev.ForeignAccountId] {
		sess.foreignSeen[ev.ForeignAccountId] = true
		sess.AccessedForeignAccountCode = append(sess.AccessedForeignAccountCode, acc.Code)
	}
	return Response{}, nil
}

func (h *Host) handleAuthRequest(ctx context.Context, sess *Session, ev Event) (Response, error) {
	if h.auth == nil {
		return Response{}, newErr(ErrAuthFailed, "no authenticator configured")
	}
	args, err := h.auth.Authenticate(ctx, sess.Inputs.Account.Id, ev.AuthMessage)
	if err != nil {
		return Response{}, newErr(ErrAuthFailed, err.Error())
	}
	key := h.hasher.Hash2(ev.PubKeyCommitment, ev.AuthMessage)
	sess.GeneratedSignatures[key] = args
	return Response{AuthArgs: args}, nil
}

// handleEpilogueFee computes the verification fee as
// VerificationBaseFee * cycles used so far, and records the native-asset
// debit in the session's account delta (spec.md sec.4.1 "epilogue: deduct
// the verification fee from the account's native-asset balance").
func (h *Host) handleEpilogueFee(sess *Session) (Response, error) {
	rate := sess.Inputs.Context.VerificationBaseFee
	fee := rate * sess.CyclesUsed
	native := sess.Inputs.Context.NativeAsset.Word()
	balance := sess.Inputs.Account.Vault.FungibleBalance(native)
	if fee > balance {
		return Response{}, newErr(ErrInsufficientFeeFunds, "account native-asset balance cannot cover the verification fee")
	}
	w := sess.Inputs.Account.Vault.Open(native)
	if sess.Inputs.PartialVault != nil {
		if err := sess.Inputs.PartialVault.Insert(w); err != nil {
			return Response{}, err
		}
	}
	sess.Delta.Vault.Fungible[native] -= int64(fee)
	sess.FeeCharged = fee
	if h.mx != nil {
		h.mx.feesCollected.Add(float64(fee))
	}
	return Response{}, nil
}

func (h *Host) handleVaultWitness(sess *Session, ev Event) (Response, error) {
	w := sess.Inputs.Account.Vault.Open(ev.VaultKey)
	if sess.Inputs.PartialVault != nil {
		if err := sess.Inputs.PartialVault.Insert(w); err != nil {
			return Response{}, err
		}
	}
	return Response{VaultWitnessValue: w.Value}, nil
}

func (h *Host) handleStorageWitness(sess *Session, ev Event) (Response, error) {
	idx, ok := sess.Inputs.Account.Storage.SlotIndexForMapRoot(ev.StorageMapRoot)
	if !ok {
		return Response{}, newErr(ErrUnknownStorageMap, "no storage slot currently has this map root")
	}
	w, err := sess.Inputs.Account.Storage.OpenMap(idx, ev.StorageMapKey)
	if err != nil {
		return Response{}, err
	}
	if sess.Inputs.PartialStorage != nil {
		if err := sess.Inputs.PartialStorage.OpenMap(ev.StorageMapRoot).Insert(h.hasher, w); err != nil {
			return Response{}, err
		}
	}
	return Response{StorageWitnessValue: w.Value}, nil
}

// Execute runs the full event trace for one transaction, returning the
// accumulated session state.
func (h *Host) Execute(ctx context.Context, in *transaction.Inputs, events []Event) (*Session, error) {
	sess := NewSession(in)
	for _, ev := range events {
		if _, err := h.HandleEvent(ctx, sess, ev); err != nil {
			return nil, err
		}
	}
	return sess, nil
}
