package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// CheckpointResult is the outcome of a WAL checkpoint.
type CheckpointResult struct {
	Busy         int
	LogFrames    int
	Checkpointed int
}

// Checkpoint runs a TRUNCATE WAL checkpoint, folding the write-ahead log back into the main file.
// Databases not in WAL mode are left untouched.
func Checkpoint(ctx context.Context, db *sql.DB) (CheckpointResult, error) {
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return CheckpointResult{}, fmt.Errorf("failed to check journal mode: %w", err)
	}
	if !strings.EqualFold(mode, "wal") {
		return CheckpointResult{}, nil
	}

	var res CheckpointResult
	err := db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").
		Scan(&res.Busy, &res.LogFrames, &res.Checkpointed)
	if err != nil {
		return CheckpointResult{}, fmt.Errorf("failed to execute WAL checkpoint: %w", err)
	}

	WALCheckpointInc()
	return res, nil
}

// Vacuum rebuilds the database file. It needs exclusive access.
func Vacuum(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return fmt.Errorf("cannot vacuum: database is locked (retry later)")
		}
		return fmt.Errorf("vacuum failed: %w", err)
	}

	return nil
}

// DBTotalSize returns the size of the database file plus its -wal and -shm companions.
// Missing files count as zero.
func DBTotalSize(path string) (int64, error) {
	var total int64
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		total += info.Size()
	}

	return total, nil
}
