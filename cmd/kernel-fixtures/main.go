// Command kernel-fixtures drives a small fee-only transaction through the
// kernel's executor/batch/block pipeline (via testutil.MockChain, since
// this repo has no real VM to generate a trace from) and writes the
// resulting account/block commitments as a JSON fixture, the same way
// the teacher's cmd/gen-conformance-fixtures refreshes its own conformance
// vectors: a flag-parsed, single-shot generator, not a long-running
// service.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/asset"
	"rollup.dev/kernel/batch"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/testutil"
)

// fixture is the JSON shape written to -out: one sealed block's worth of
// commitments plus identifying detail (account id, native asset, fee paid).
// The seed tag used to grind the account is not recorded.
type fixture struct {
	RunID               string `json:"run_id"`
	SchemaVersion       int    `json:"schema_version"`
	AccountPrefixHex    string `json:"account_prefix_hex"`
	AccountSuffixHex    string `json:"account_suffix_hex"`
	NativeAssetHex      string `json:"native_asset_hex"`
	VerificationBaseFee uint64 `json:"verification_base_fee"`
	InitialBalance      uint64 `json:"initial_balance"`
	FeeCharged          uint64 `json:"fee_charged"`
	FinalBalance        uint64 `json:"final_balance"`
	BlockNum            uint32 `json:"block_num"`
	Timestamp           uint64 `json:"timestamp"`
	AccountRootHex      string `json:"account_root_hex"`
	NullifierRootHex    string `json:"nullifier_root_hex"`
	HeaderCommitmentHex string `json:"header_commitment_hex"`
}

func feltHex(f crypto.Felt) string {
	return hex.EncodeToString([]byte{
		byte(f >> 56), byte(f >> 48), byte(f >> 40), byte(f >> 32),
		byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f),
	})
}

func wordHex(w crypto.Word) string {
	b := w.Bytes()
	return hex.EncodeToString(b[:])
}

func main() {
	var (
		out          = flag.String("out", "kernel-fixture.json", "output JSON path")
		accPrefix    = flag.Uint64("account-prefix", 10, "native asset faucet account id prefix")
		accSuffix    = flag.Uint64("account-suffix", 20, "native asset faucet account id suffix")
		amount       = flag.Uint64("amount", 1000, "initial native-asset balance funded to the account")
		baseFee      = flag.Uint64("verification-base-fee", 2, "verification fee charged per execution cycle")
		expiration   = flag.Uint64("expiration-block", 1000, "block number after which the transaction can no longer be included")
		timestamp    = flag.Uint64("timestamp", 1, "block timestamp to seal with")
		seedTagValue = flag.Uint64("seed-tag", 7, "seed tag distinguishing this fixture's account from others ground in the same run")
	)
	flag.Parse()

	h := crypto.Sha3Hasher{}
	native := account.Id{Prefix: crypto.NewFelt(*accPrefix), Suffix: crypto.NewFelt(*accSuffix)}

	chain, err := testutil.NewMockChain(h, native, *baseFee)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: new mock chain: %v\n", err)
		os.Exit(1)
	}

	components := testutil.SingleAuthComponent(h, crypto.Word{1})
	acc, err := testutil.GrindAccount(h, components, account.TypeRegularUpdatable, account.StoragePublic, crypto.NewFelt(*seedTagValue))
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: grind account: %v\n", err)
		os.Exit(1)
	}
	fund, err := asset.NewFungible(native.Word(), *amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: new fungible: %v\n", err)
		os.Exit(1)
	}
	if err := acc.Vault.AddFungible(fund); err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: fund account: %v\n", err)
		os.Exit(1)
	}
	chain.AddAccount(acc)
	initialBalance := acc.Vault.FungibleBalance(native.Word())

	txid := crypto.Word{crypto.NewFelt(1)}
	tx, err := testutil.ExecuteFeeOnlyTransaction(h, chain, acc, txid, uint32(*expiration))
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: execute transaction: %v\n", err)
		os.Exit(1)
	}

	pbatch, err := chain.AssembleBatch([]batch.ProvenTransaction{tx})
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: assemble batch: %v\n", err)
		os.Exit(1)
	}

	block, err := chain.SealBlock([]*batch.ProvenBatch{pbatch}, *timestamp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: seal block: %v\n", err)
		os.Exit(1)
	}

	fx := fixture{
		RunID:               uuid.NewString(),
		SchemaVersion:       1,
		AccountPrefixHex:    feltHex(acc.Id.Prefix),
		AccountSuffixHex:    feltHex(acc.Id.Suffix),
		NativeAssetHex:      wordHex(native.Word()),
		VerificationBaseFee: *baseFee,
		InitialBalance:      initialBalance,
		FeeCharged:          tx.Fee.Amount,
		FinalBalance:        acc.Vault.FungibleBalance(native.Word()),
		BlockNum:            block.Header.BlockNum,
		Timestamp:           block.Header.Timestamp,
		AccountRootHex:      wordHex(block.Header.AccountRoot),
		NullifierRootHex:    wordHex(block.Header.NullifierRoot),
		HeaderCommitmentHex: wordHex(block.Header.Commitment(h)),
	}

	b, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: marshal fixture: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "kernel-fixtures: write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (run %s)\n", *out, fx.RunID)
}
