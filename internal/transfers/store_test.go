package transfers

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/goran-ethernal/TokenLedger/internal/codec"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/types"
	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000bb")

	jan = time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)
	feb = time.Date(2024, time.February, 1, 0, 1, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.StorageConfig{
		SnapshotDir:  t.TempDir(),
		TransfersDir: filepath.Join(t.TempDir(), "transfers"),
	}
	cfg.ApplyDefaults()

	s, err := NewStore("ethereum", cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func record(block uint64, logIndex uint, ts time.Time, amount *big.Int) types.TransferRecord {
	return types.TransferRecord{
		LogIndex:    logIndex,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*100 + uint64(logIndex))),
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(block)),
		BlockNumber: block,
		From:        alice,
		To:          bob,
		Timestamp:   uint64(ts.Unix()),
		Amount:      amount,
		Value:       types.NormalizeAmount(amount, 18),
	}
}

func TestStore_AppendAndReadPartition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	huge, ok := new(big.Int).SetString("123456789012345678901234567890123456", 10)
	require.True(t, ok)

	records := []types.TransferRecord{
		record(10, 0, jan, big.NewInt(1)),
		record(10, 1, jan, huge),
		record(11, 0, feb, big.NewInt(7)),
	}

	inserted, err := s.Append(ctx, records)
	require.NoError(t, err)
	require.Equal(t, 3, inserted)

	months, err := s.Partitions()
	require.NoError(t, err)
	require.Equal(t, []string{"202401", "202402"}, months)

	require.FileExists(t, s.PartitionPath("202401"))
	require.Equal(t, "ethereum-202401-transfers.db", filepath.Base(s.PartitionPath("202401")))

	rows, err := s.ReadPartition(ctx, "202401")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, uint(0), rows[0].LogIndex)
	require.Equal(t, uint(1), rows[1].LogIndex)
	require.Less(t, rows[0].ID, rows[1].ID)
	require.Equal(t, alice, rows[1].From)
	require.Equal(t, bob, rows[1].To)
	require.Equal(t, records[1].TxHash, rows[1].TxHash)
	require.Equal(t, codec.Digits{A3: 123456789, A2: 12345678, A1: 901234567, A0: 890123456}, rows[1].Digits())

	amount, err := rows[1].Amount()
	require.NoError(t, err)
	require.Equal(t, 0, huge.Cmp(amount))

	rec, err := rows[1].Record(18)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("123456789012345678.901234567890123456").Equal(rec.Value))
	require.Equal(t, records[1].BlockNumber, rec.BlockNumber)
	require.Equal(t, records[1].Timestamp, rec.Timestamp)
}

func TestStore_DuplicateAppendIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []types.TransferRecord{
		record(10, 0, jan, big.NewInt(1)),
		record(10, 1, jan, big.NewInt(2)),
	}

	inserted, err := s.Append(ctx, records)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	inserted, err = s.Append(ctx, records)
	require.NoError(t, err)
	require.Zero(t, inserted)

	rows, err := s.ReadPartition(ctx, "202401")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestStore_AppendRejectsOverflow(t *testing.T) {
	s := newTestStore(t)

	tooBig := new(big.Int).Add(codec.MaxAmount, big.NewInt(1))
	_, err := s.Append(context.Background(), []types.TransferRecord{record(10, 0, jan, tooBig)})
	require.ErrorIs(t, err, codec.ErrAmountOverflow)

	months, err := s.Partitions()
	require.NoError(t, err)
	require.Empty(t, months)
}

func TestStore_AppendEmpty(t *testing.T) {
	s := newTestStore(t)

	inserted, err := s.Append(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, inserted)
}

func TestStore_ReadMissingPartition(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadPartition(context.Background(), "203001")
	require.ErrorIs(t, err, ErrPartitionNotFound)

	_, err = s.ReadPartition(context.Background(), "2030-01")
	require.Error(t, err)
}

func TestStore_Scan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mar := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	_, err := s.Append(ctx, []types.TransferRecord{
		record(10, 0, jan, big.NewInt(1)),
		record(11, 0, feb, big.NewInt(2)),
		record(12, 0, mar, big.NewInt(3)),
	})
	require.NoError(t, err)

	var blocks []uint64
	collect := func(r *Row) error {
		blocks = append(blocks, r.BlockNumber)
		return nil
	}

	require.NoError(t, s.Scan(ctx, jan, mar, collect))
	require.Equal(t, []uint64{10, 11}, blocks)

	blocks = nil
	require.NoError(t, s.Scan(ctx, feb, mar.Add(time.Second), collect))
	require.Equal(t, []uint64{11, 12}, blocks)

	blocks = nil
	require.NoError(t, s.Scan(ctx, mar, jan, collect))
	require.Empty(t, blocks)

	// bounds are whole seconds
	blocks = nil
	require.NoError(t, s.Scan(ctx, mar.Add(-500*time.Millisecond), mar.Add(999*time.Millisecond), collect))
	require.Empty(t, blocks)

	blocks = nil
	require.NoError(t, s.Scan(ctx, mar.Add(200*time.Millisecond), mar.Add(1500*time.Millisecond), collect))
	require.Equal(t, []uint64{12}, blocks)
}

func TestStore_ScanPartitionStopsOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, []types.TransferRecord{
		record(10, 0, jan, big.NewInt(1)),
		record(10, 1, jan, big.NewInt(2)),
	})
	require.NoError(t, err)

	calls := 0
	errStop := os.ErrClosed
	err = s.ScanPartition(ctx, "202401", func(*Row) error {
		calls++
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	require.Equal(t, 1, calls)
}

func TestStore_SealsOlderPartitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, []types.TransferRecord{record(10, 0, jan, big.NewInt(1))})
	require.NoError(t, err)
	require.Contains(t, s.open, "202401")

	_, err = s.Append(ctx, []types.TransferRecord{record(11, 0, feb, big.NewInt(1))})
	require.NoError(t, err)
	require.NotContains(t, s.open, "202401")
	require.Contains(t, s.open, "202402")

	// a sealed partition is reopened on demand
	rows, err := s.ReadPartition(ctx, "202401")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestStore_PartitionsIgnoresForeignFiles(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{
		"polygon-202401-transfers.db",
		"ethereum-2024-transfers.db",
		"ethereum-202401-transfers.db-wal",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(s.dir, name), nil, 0o600))
	}
	require.NoError(t, os.WriteFile(s.PartitionPath("202312"), nil, 0o600))

	months, err := s.Partitions()
	require.NoError(t, err)
	require.Equal(t, []string{"202312"}, months)
}
