// Package store implements a concrete, bbolt-backed DataStore: the
// persistent home for account records, historical block headers, and the
// two global trees (AccountTree, NullifierTree) the block package mutates
// at block assembly time (spec.md sec.6 "DataStore capability").
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rollup.dev/kernel/account"
	"rollup.dev/kernel/crypto"
	"rollup.dev/kernel/crypto/mmr"
	"rollup.dev/kernel/crypto/smt"
	"rollup.dev/kernel/partial"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketAccounts   = []byte("accounts_by_id")
	bucketHeaders    = []byte("headers_by_block_num")
	bucketTrees      = []byte("global_trees")
	keyAccountTree   = []byte("account_tree")
	keyNullifierTree = []byte("nullifier_tree")
)

// DB is the bbolt-backed persistence layer for one chain. It satisfies
// executor.DataStore directly and additionally owns the two persistent
// global trees the block package mutates in place.
type DB struct {
	hasher   crypto.Hasher
	chainDir string
	db       *bolt.DB
	manifest *Manifest

	accountTree   *smt.Tree
	nullifierTree *smt.Tree
	chain         *mmr.Mmr
}

// Open opens (creating if necessary) the bbolt store for chainIDHex under
// datadir, replaying its persisted headers into an in-memory MMR and its
// persisted tree entries into the two global SMTs.
func Open(h crypto.Hasher, datadir string, chainIDHex string) (*DB, error) {
	if datadir == "" {
		return nil, fmt.Errorf("datadir required")
	}
	if chainIDHex == "" {
		return nil, fmt.Errorf("chain_id_hex required")
	}

	chainDir := ChainDir(datadir, chainIDHex)
	if err := ensureDir(chainDir); err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Join(chainDir, "db")); err != nil {
		return nil, err
	}

	path := filepath.Join(chainDir, "db", "kv.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	d := &DB{hasher: h, chainDir: chainDir, db: bdb}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketAccounts, bucketHeaders, bucketTrees} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	m, err := readManifest(chainDir)
	if err != nil {
		if os.IsNotExist(err) {
			d.accountTree = smt.New(h)
			d.nullifierTree = smt.New(h)
			d.chain = mmr.New(h)
			return d, nil // uninitialized chain; caller must InitGenesis.
		}
		_ = bdb.Close()
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if m.SchemaVersion > SchemaVersionV1 {
		_ = bdb.Close()
		return nil, fmt.Errorf("manifest schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
	}
	d.manifest = m

	if err := d.loadTrees(); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	if err := d.loadChain(); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) ChainDir() string { return d.chainDir }

func (d *DB) Manifest() *Manifest {
	if d == nil {
		return nil
	}
	return d.manifest
}

func (d *DB) SetManifest(m *Manifest) error {
	if d == nil {
		return fmt.Errorf("db: nil")
	}
	if err := writeManifestAtomic(d.chainDir, m); err != nil {
		return err
	}
	d.manifest = m
	return nil
}

// AccountTree is the live, persistent global account tree. The block
// package mutates it directly via Tree.Set; PersistTrees writes its current
// contents back to bbolt once a block has been assembled.
func (d *DB) AccountTree() *smt.Tree { return d.accountTree }

// NullifierTree is the live, persistent global nullifier tree.
func (d *DB) NullifierTree() *smt.Tree { return d.nullifierTree }

// Chain is the in-memory MMR projection of every header this store has
// recorded, kept in sync with bucketHeaders by PutBlockHeader.
func (d *DB) Chain() *mmr.Mmr { return d.chain }

func (d *DB) loadTrees() error {
	return d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTrees)
		accEntries, err := decodeEntries(b.Get(keyAccountTree))
		if err != nil {
			return fmt.Errorf("decode account tree: %w", err)
		}
		nfEntries, err := decodeEntries(b.Get(keyNullifierTree))
		if err != nil {
			return fmt.Errorf("decode nullifier tree: %w", err)
		}
		d.accountTree = smt.FromEntries(d.hasher, accEntries)
		d.nullifierTree = smt.FromEntries(d.hasher, nfEntries)
		return nil
	})
}

func (d *DB) loadChain() error {
	d.chain = mmr.New(d.hasher)
	return d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHeaders).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var header partial.BlockHeader
			if err := json.Unmarshal(v, &header); err != nil {
				return fmt.Errorf("decode header %x: %w", k, err)
			}
			d.chain.Append(header.Commitment(d.hasher))
		}
		return nil
	})
}

func decodeEntries(b []byte) ([]smt.Entry, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var entries []smt.Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PersistTrees writes the current contents of AccountTree/NullifierTree
// back to bbolt. Call this once per assembled block, after the block
// package has finished mutating both trees in place.
func (d *DB) PersistTrees() error {
	accBytes, err := json.Marshal(d.accountTree.Entries())
	if err != nil {
		return fmt.Errorf("encode account tree: %w", err)
	}
	nfBytes, err := json.Marshal(d.nullifierTree.Entries())
	if err != nil {
		return fmt.Errorf("encode nullifier tree: %w", err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTrees)
		if err := b.Put(keyAccountTree, accBytes); err != nil {
			return err
		}
		return b.Put(keyNullifierTree, nfBytes)
	})
}

func blockNumKey(blockNum uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, blockNum)
	return key
}

func accountKey(id account.Id) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], uint64(id.Prefix))
	binary.BigEndian.PutUint64(key[8:16], uint64(id.Suffix))
	return key
}

// PutAccount persists a's current state.
func (d *DB) PutAccount(a *account.Account) error {
	b, err := json.Marshal(a.Snapshot())
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put(accountKey(a.Id), b)
	})
}

// GetAccount loads the persisted state for id, if present.
func (d *DB) GetAccount(id account.Id) (*account.Account, bool, error) {
	var snap account.Snapshot
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAccounts).Get(accountKey(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &snap)
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return account.Restore(d.hasher, snap), true, nil
}

// PutBlockHeader persists header and appends its commitment to the
// in-memory chain MMR, in one call, so the two never drift apart.
func (d *DB) PutBlockHeader(header partial.BlockHeader) error {
	b, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeaders).Put(blockNumKey(header.BlockNum), b)
	}); err != nil {
		return err
	}
	d.chain.Append(header.Commitment(d.hasher))
	return nil
}

func (d *DB) getHeader(blockNum uint32) (partial.BlockHeader, bool, error) {
	var header partial.BlockHeader
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHeaders).Get(blockNumKey(blockNum))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &header)
	})
	return header, found, err
}

// ForeignAccount implements executor.DataStore: it loads id's persisted
// state and opens a witness for it against the live account tree, erroring
// if the caller's accountRoot does not match the tree's current root (this
// store keeps only the current account tree, not historical snapshots of
// it).
func (d *DB) ForeignAccount(ctx context.Context, id account.Id, accountRoot crypto.Word) (*account.Account, partial.AccountWitness, error) {
	select {
	case <-ctx.Done():
		return nil, partial.AccountWitness{}, ctx.Err()
	default:
	}
	if d.accountTree.Root() != accountRoot {
		return nil, partial.AccountWitness{}, fmt.Errorf("store: accountRoot does not match the current account tree root")
	}
	acc, ok, err := d.GetAccount(id)
	if err != nil {
		return nil, partial.AccountWitness{}, err
	}
	if !ok {
		return nil, partial.AccountWitness{}, fmt.Errorf("store: account %v not found", id)
	}
	path := d.accountTree.Open(crypto.Word{id.Prefix, 0, 0, 0})
	return acc, partial.AccountWitness{
		AccountId:       id,
		StateCommitment: acc.Commitment(d.hasher),
		Path:            path,
	}, nil
}

// BlockHeader implements executor.DataStore: it loads a historical header
// and proves its inclusion in the chain MMR against chainRoot.
func (d *DB) BlockHeader(ctx context.Context, blockNum uint32, chainRoot crypto.Word) (partial.BlockHeader, mmr.Path, error) {
	select {
	case <-ctx.Done():
		return partial.BlockHeader{}, mmr.Path{}, ctx.Err()
	default:
	}
	header, ok, err := d.getHeader(blockNum)
	if err != nil {
		return partial.BlockHeader{}, mmr.Path{}, err
	}
	if !ok {
		return partial.BlockHeader{}, mmr.Path{}, fmt.Errorf("store: block %d not found", blockNum)
	}
	path, ok := d.chain.Prove(uint64(blockNum))
	if !ok {
		return partial.BlockHeader{}, mmr.Path{}, fmt.Errorf("store: no MMR leaf for block %d", blockNum)
	}
	if d.chain.Root() != chainRoot {
		return partial.BlockHeader{}, mmr.Path{}, fmt.Errorf("store: chainRoot does not match the current chain root")
	}
	return header, path, nil
}
