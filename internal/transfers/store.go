// Package transfers is the append-only transfer log: one sqlite partition per chain per
// calendar month.
package transfers

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/russross/meddler"

	internalcommon "github.com/goran-ethernal/TokenLedger/internal/common"
	"github.com/goran-ethernal/TokenLedger/internal/db"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/types"
	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

//go:embed migrations/001_transfers.sql
var mig001 string

var migrations = []db.Migration{
	{ID: "001_transfers.sql", SQL: mig001},
}

// ErrPartitionNotFound is returned when reading a month that has no partition file.
var ErrPartitionNotFound = errors.New("partition not found")

// Store appends transfer records to monthly partitions of one chain and reads them back.
// Partitions are opened lazily and kept open until sealed or Close is called.
// It is safe for concurrent use.
type Store struct {
	dir    string
	chain  string
	suffix string
	dbCfg  config.DatabaseConfig
	log    *logger.Logger

	mu     sync.Mutex
	open   map[string]*sql.DB
	latest string
}

// NewStore creates the transfer log of chain under cfg.TransfersDir.
func NewStore(chain string, cfg config.StorageConfig, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.TransfersDir, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create transfers dir: %w", err)
	}

	return &Store{
		dir:    cfg.TransfersDir,
		chain:  chain,
		suffix: cfg.TransfersSuffix,
		dbCfg:  cfg.DB,
		log:    log,
		open:   make(map[string]*sql.DB),
	}, nil
}

// PartitionPath returns the file of the given YYYYMM month.
func (s *Store) PartitionPath(month string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s-%s", s.chain, month, s.suffix))
}

// Append stores records, grouped by month partition. Each partition is written in one
// transaction. Records already present (same tx hash and log index) are ignored, so appending a
// batch again is a no-op. It returns the number of rows actually inserted.
func (s *Store) Append(ctx context.Context, records []types.TransferRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var (
		months []string
		groups = make(map[string][]*Row)
	)
	for _, rec := range records {
		row, err := NewRow(rec)
		if err != nil {
			return 0, err
		}

		month := rec.Partition()
		if _, ok := groups[month]; !ok {
			months = append(months, month)
		}
		groups[month] = append(groups[month], row)
	}

	inserted := 0
	for _, month := range months {
		n, err := s.appendPartition(ctx, month, groups[month])
		if err != nil {
			return inserted, fmt.Errorf("partition %s: %w", month, err)
		}
		inserted += n
	}

	s.sealBefore(ctx, slices.Max(months))

	s.log.Debugf("appended %d of %d transfers across partitions %v", inserted, len(records), months)
	return inserted, nil
}

func (s *Store) appendPartition(ctx context.Context, month string, rows []*Row) (int, error) {
	conn, err := s.partition(ctx, month, true)
	if err != nil {
		return 0, err
	}

	query, err := insertQuery(rows[0])
	if err != nil {
		return 0, err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Errorf("failed to rollback partition %s: %v", month, rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, row := range rows {
		var values []any
		values, err = meddler.Values(row, false)
		if err != nil {
			return 0, fmt.Errorf("failed to encode row: %w", err)
		}

		var res sql.Result
		res, err = stmt.ExecContext(ctx, values...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transfer %s/%d: %w", row.TxHash, row.LogIndex, err)
		}

		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return inserted, nil
}

func insertQuery(sample *Row) (string, error) {
	columns, err := meddler.ColumnsQuoted(sample, false)
	if err != nil {
		return "", err
	}
	placeholders, err := meddler.PlaceholdersString(sample, false)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", tableName, columns, placeholders), nil
}

// Partitions lists the months that have a partition file, oldest first.
func (s *Store) Partitions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list transfers dir: %w", err)
	}

	prefix := s.chain + "-"
	suffix := "-" + s.suffix

	var months []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}

		month := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
		if _, err := internalcommon.ParseMonthKey(month); err != nil {
			continue
		}
		months = append(months, month)
	}

	slices.Sort(months)
	return months, nil
}

// ReadPartition returns every row of a month in insertion order.
func (s *Store) ReadPartition(ctx context.Context, month string) ([]*Row, error) {
	conn, err := s.partition(ctx, month, false)
	if err != nil {
		return nil, err
	}

	var rows []*Row
	err = meddler.QueryAll(conn, &rows, fmt.Sprintf("SELECT * FROM %s ORDER BY id", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", month, err)
	}

	return rows, nil
}

// ScanPartition calls fn for every row of a month in insertion order.
func (s *Store) ScanPartition(ctx context.Context, month string, fn func(*Row) error) error {
	return s.scan(ctx, month, fmt.Sprintf("SELECT * FROM %s ORDER BY id", tableName), fn)
}

// Scan calls fn for every transfer with a timestamp in [from, to), oldest partition first and
// in insertion order within a partition. Block timestamps have second resolution, so both
// bounds are truncated to whole seconds.
func (s *Store) Scan(ctx context.Context, from, to time.Time, fn func(*Row) error) error {
	from, to = from.Truncate(time.Second), to.Truncate(time.Second)
	if !from.Before(to) {
		return nil
	}

	months, err := s.Partitions()
	if err != nil {
		return err
	}

	first := internalcommon.MonthKey(from)
	last := internalcommon.MonthKey(to.Add(-time.Second))

	query := fmt.Sprintf("SELECT * FROM %s WHERE timestamp >= ? AND timestamp < ? ORDER BY id", tableName)
	for _, month := range months {
		if month < first || month > last {
			continue
		}
		if err := s.scan(ctx, month, query, fn, from.Unix(), to.Unix()); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) scan(ctx context.Context, month, query string, fn func(*Row) error, args ...any) error {
	conn, err := s.partition(ctx, month, false)
	if err != nil {
		return err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query partition %s: %w", month, err)
	}
	defer rows.Close()

	for {
		row := new(Row)
		if err := meddler.ScanRow(rows, row); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to scan partition %s: %w", month, err)
		}

		if err := fn(row); err != nil {
			return err
		}
	}
}

// partition returns the open database of month, opening and migrating it when needed.
// Without create a missing file yields ErrPartitionNotFound.
func (s *Store) partition(ctx context.Context, month string, create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, ok := s.open[month]; ok {
		return conn, nil
	}

	if _, err := internalcommon.ParseMonthKey(month); err != nil {
		return nil, err
	}

	path := s.PartitionPath(month)
	if !create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s %s", ErrPartitionNotFound, s.chain, month)
		}
	}

	conn, err := db.NewSQLiteDB(path, s.dbCfg)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(s.log, conn, migrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate partition %s: %w", month, err)
	}

	if err := ctx.Err(); err != nil {
		conn.Close()
		return nil, err
	}

	s.open[month] = conn
	return conn, nil
}

// sealBefore checkpoints and closes every open partition older than month. A month stops
// receiving writes once a later one has been written to.
func (s *Store) sealBefore(ctx context.Context, month string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if month <= s.latest {
		return
	}
	s.latest = month

	for m, conn := range s.open {
		if m >= month {
			continue
		}

		if _, err := db.Checkpoint(ctx, conn); err != nil {
			s.log.Warnf("failed to checkpoint partition %s: %v", m, err)
		}
		if err := conn.Close(); err != nil {
			s.log.Warnf("failed to close partition %s: %v", m, err)
		}
		delete(s.open, m)

		if size, err := db.DBTotalSize(s.PartitionPath(m)); err == nil {
			db.PartitionSizeLog(s.chain, m, size)
		}
		s.log.Infof("sealed partition %s", m)
	}
}

// Close closes every open partition.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for m, conn := range s.open {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("partition %s: %w", m, err))
		}
		delete(s.open, m)
	}

	return errors.Join(errs...)
}
