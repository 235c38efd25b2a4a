package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrSnapshotNotFound is returned by ReadSnapshot when the chain has no snapshot yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted balance ledger of one chain. Balances are keyed by EIP-55
// address and never hold zero.
type Snapshot struct {
	StartBlock uint64                     `json:"start_block"`
	LastBlock  uint64                     `json:"last_block"`
	Balances   map[string]decimal.Decimal `json:"balances"`
}

// HoldersCount returns the number of addresses with a non-zero balance.
func (s Snapshot) HoldersCount() int {
	return len(s.Balances)
}

// SnapshotPath returns the snapshot file of chain.
func SnapshotPath(dir, chain, suffix string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s", chain, suffix))
}

// ReadSnapshot decodes the snapshot at path without taking ownership of it.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("corrupt snapshot %s: %w", path, err)
	}
	if snap.Balances == nil {
		snap.Balances = make(map[string]decimal.Decimal)
	}

	for key := range snap.Balances {
		if !common.IsHexAddress(key) {
			return Snapshot{}, fmt.Errorf("corrupt snapshot %s: invalid address %q", path, key)
		}
	}

	return snap, nil
}

// writeSnapshot replaces the file at path with snap. The data is written to a temporary file
// in the same directory, flushed and renamed over path, then the directory entry is flushed.
func writeSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open snapshot dir: %w", err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to flush snapshot dir: %w", err)
	}
	return nil
}
