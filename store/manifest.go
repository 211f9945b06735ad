package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"rollup.dev/kernel/crypto"
)

const SchemaVersionV1 uint32 = 1

// Manifest is the chain's crash-safe commit point: the tip block number
// plus the three global roots the next block assembly must continue from,
// so a restart can recognize its own last-applied state without replaying
// the bucket contents to compute roots up front.
type Manifest struct {
	SchemaVersion uint32 `json:"schema_version"`
	ChainIDHex    string `json:"chain_id_hex"`

	TipBlockNum      uint32      `json:"tip_block_num"`
	TipAccountRoot   crypto.Word `json:"tip_account_root"`
	TipNullifierRoot crypto.Word `json:"tip_nullifier_root"`
}

func manifestPath(chainDir string) string {
	return filepath.Join(chainDir, "MANIFEST.json")
}

// readManifest loads and decodes the manifest file; a missing file surfaces
// as the underlying os.ErrNotExist so callers can tell "no manifest yet"
// from a corrupt one.
func readManifest(chainDir string) (*Manifest, error) {
	f, err := os.Open(manifestPath(chainDir)) // #nosec G304 -- chainDir is operator-supplied, not untrusted input.
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// writeManifestAtomic commits m to disk so that a crash never leaves a
// half-written manifest behind: the new contents land in a scratch file
// next to the target, are flushed to disk, and only then does the rename
// (atomic on the same filesystem) make them visible under the real name.
// The containing directory is fsynced afterward so the rename itself
// survives a crash, not just the file's bytes.
func writeManifestAtomic(chainDir string, m *Manifest) error {
	if m == nil {
		return fmt.Errorf("write manifest: nil manifest")
	}
	encoded, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	encoded = append(encoded, '\n')

	if err := atomicReplace(chainDir, manifestPath(chainDir), encoded); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// atomicReplace durably overwrites target with data: a scratch file in dir
// absorbs the write and is fsynced, then renamed over target, then dir
// itself is fsynced so the rename is not lost if power is cut right after.
func atomicReplace(dir, target string, data []byte) error {
	scratch, err := os.CreateTemp(dir, ".manifest-*.tmp") // #nosec G304 -- dir is operator-supplied, not untrusted input.
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	scratchName := scratch.Name()

	writeErr := func() error {
		if _, err := scratch.Write(data); err != nil {
			return fmt.Errorf("write scratch file: %w", err)
		}
		if err := scratch.Sync(); err != nil {
			return fmt.Errorf("sync scratch file: %w", err)
		}
		return nil
	}()
	if closeErr := scratch.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(scratchName)
		return writeErr
	}

	if err := os.Rename(scratchName, target); err != nil {
		os.Remove(scratchName)
		return fmt.Errorf("install scratch file: %w", err)
	}

	dirHandle, err := os.Open(dir) // #nosec G304 -- dir is operator-supplied, not untrusted input.
	if err != nil {
		return fmt.Errorf("open directory for sync: %w", err)
	}
	defer dirHandle.Close()
	if err := dirHandle.Sync(); err != nil {
		return fmt.Errorf("sync directory: %w", err)
	}
	return nil
}
