package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goran-ethernal/TokenLedger/internal/codec"
	"github.com/goran-ethernal/TokenLedger/internal/indexer/mocks"
	"github.com/goran-ethernal/TokenLedger/internal/ledger"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/transfers"
	"github.com/goran-ethernal/TokenLedger/internal/types"
	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	ts    = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
)

type testEnv struct {
	source    *mocks.ChainSource
	ledger    *ledger.Store
	transfers *transfers.Store
	coord     *Coordinator
}

func newTestEnv(t *testing.T, startBlock, finalization uint64) *testEnv {
	t.Helper()

	log := logger.NewNopLogger()
	cfg := config.StorageConfig{SnapshotDir: t.TempDir(), TransfersDir: t.TempDir()}
	cfg.ApplyDefaults()

	store, err := transfers.NewStore("test", cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	l, err := ledger.Open(ledger.SnapshotPath(cfg.SnapshotDir, "test", cfg.SnapshotSuffix), startBlock, log)
	require.NoError(t, err)

	source := mocks.NewChainSource(t)

	return &testEnv{
		source:    source,
		ledger:    l,
		transfers: store,
		coord: NewCoordinator(CoordinatorConfig{Chain: "test", FinalizationDelay: finalization},
			source, store, l, log),
	}
}

func transfer(block uint64, logIndex uint, from, to common.Address, value string) types.TransferRecord {
	v := decimal.RequireFromString(value)
	return types.TransferRecord{
		LogIndex:    logIndex,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		BlockNumber: block,
		From:        from,
		To:          to,
		Timestamp:   uint64(ts.Unix()),
		Amount:      v.Shift(18).BigInt(),
		Value:       v,
	}
}

func TestPollOnce_EmptyRangeCatchUp(t *testing.T) {
	env := newTestEnv(t, 500, 10)
	ctx := context.Background()

	env.source.EXPECT().LatestBlock(ctx).Return(uint64(510), nil).Once()
	env.source.EXPECT().FetchTransfers(ctx, uint64(500), uint64(500)).Return(uint64(500), nil, nil).Once()

	updated, headReached, err := env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.False(t, updated)
	require.True(t, headReached)
	require.Equal(t, uint64(500), env.ledger.LastBlock())

	snap, err := ledger.ReadSnapshot(env.ledger.Path())
	require.NoError(t, err)
	require.Equal(t, uint64(500), snap.LastBlock)
}

func TestPollOnce_PartialRange(t *testing.T) {
	env := newTestEnv(t, 100, 10)
	ctx := context.Background()

	records := []types.TransferRecord{
		transfer(150, 0, common.Address{}, alice, "100"),
		transfer(160, 0, alice, bob, "40"),
	}

	env.source.EXPECT().LatestBlock(ctx).Return(uint64(10010), nil).Once()
	env.source.EXPECT().FetchTransfers(ctx, uint64(100), uint64(10000)).Return(uint64(3100), records, nil).Once()

	updated, headReached, err := env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.True(t, updated)
	require.False(t, headReached)
	require.Equal(t, uint64(3100), env.ledger.LastBlock())

	bal, ok := env.ledger.Balance(alice)
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("60").Equal(bal))
	require.Equal(t, 2, env.ledger.HoldersCount())

	rows, err := env.transfers.ReadPartition(ctx, "202405")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// the next cycle continues after the achieved block
	env.source.EXPECT().LatestBlock(ctx).Return(uint64(10010), nil).Once()
	env.source.EXPECT().FetchTransfers(ctx, uint64(3101), uint64(10000)).Return(uint64(10000), nil, nil).Once()

	updated, headReached, err = env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.False(t, updated)
	require.True(t, headReached)
	require.Equal(t, uint64(10000), env.ledger.LastBlock())
}

func TestPollOnce_FullDrain(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	ctx := context.Background()

	records := []types.TransferRecord{
		transfer(5, 0, common.Address{}, alice, "10"),
		transfer(6, 0, alice, bob, "10"),
		transfer(7, 0, bob, common.Address{}, "10"),
	}

	env.source.EXPECT().LatestBlock(ctx).Return(uint64(7), nil).Once()
	env.source.EXPECT().FetchTransfers(ctx, uint64(1), uint64(7)).Return(uint64(7), records, nil).Once()

	updated, headReached, err := env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.True(t, updated)
	require.True(t, headReached)
	require.Zero(t, env.ledger.HoldersCount())
}

func TestPollOnce_IdleAtFinalizedHead(t *testing.T) {
	env := newTestEnv(t, 500, 10)
	ctx := context.Background()

	// ledger at 499, finalized head 499
	env.source.EXPECT().LatestBlock(ctx).Return(uint64(509), nil).Once()

	updated, headReached, err := env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.False(t, updated)
	require.True(t, headReached)
	require.Equal(t, uint64(499), env.ledger.LastBlock())
	require.NoFileExists(t, env.ledger.Path())
}

func TestPollOnce_OverflowingAmountStalls(t *testing.T) {
	env := newTestEnv(t, 100, 0)
	ctx := context.Background()

	rec := transfer(150, 0, common.Address{}, alice, "1")
	rec.Amount = new(big.Int).Add(codec.MaxAmount, big.NewInt(1))

	env.source.EXPECT().LatestBlock(ctx).Return(uint64(200), nil).Once()
	env.source.EXPECT().FetchTransfers(ctx, uint64(100), uint64(200)).
		Return(uint64(200), []types.TransferRecord{rec}, nil).Once()

	_, _, err := env.coord.PollOnce(ctx)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, codec.ErrAmountOverflow)
	require.Equal(t, uint64(99), env.ledger.LastBlock())
	require.Zero(t, env.ledger.HoldersCount())
	require.NoFileExists(t, env.ledger.Path())
}

func TestPollOnce_HeadBehindLedger(t *testing.T) {
	env := newTestEnv(t, 500, 10)
	ctx := context.Background()

	env.source.EXPECT().LatestBlock(ctx).Return(uint64(505), nil).Once()

	updated, headReached, err := env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.False(t, updated)
	require.False(t, headReached)
	require.NoFileExists(t, env.ledger.Path())
}

func TestPollOnce_HeadBelowFinalization(t *testing.T) {
	env := newTestEnv(t, 1, 64)
	ctx := context.Background()

	env.source.EXPECT().LatestBlock(ctx).Return(uint64(10), nil).Once()

	updated, headReached, err := env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.False(t, updated)
	require.False(t, headReached)
}

func TestPollOnce_FetchErrors(t *testing.T) {
	t.Run("latest block", func(t *testing.T) {
		env := newTestEnv(t, 100, 10)
		ctx := context.Background()

		env.source.EXPECT().LatestBlock(ctx).Return(uint64(0), errors.New("dial tcp: connection refused")).Once()

		_, _, err := env.coord.PollOnce(ctx)
		require.ErrorIs(t, err, ErrFetch)
		require.NotErrorIs(t, err, ErrPersistence)
	})

	t.Run("fetch transfers", func(t *testing.T) {
		env := newTestEnv(t, 100, 10)
		ctx := context.Background()

		env.source.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil).Once()
		env.source.EXPECT().FetchTransfers(ctx, mock.Anything, mock.Anything).
			Return(uint64(0), nil, errors.New("timeout")).Once()

		_, _, err := env.coord.PollOnce(ctx)
		require.ErrorIs(t, err, ErrFetch)
		require.ErrorContains(t, err, "timeout")
		require.Equal(t, uint64(99), env.ledger.LastBlock())
		require.NoFileExists(t, env.ledger.Path())
	})
}

type failingLog struct{}

func (failingLog) Append(context.Context, []types.TransferRecord) (int, error) {
	return 0, errors.New("disk full")
}

func TestPollOnce_PersistenceError(t *testing.T) {
	log := logger.NewNopLogger()
	ctx := context.Background()

	l, err := ledger.Open(filepath.Join(t.TempDir(), "snap.json"), 100, log)
	require.NoError(t, err)

	source := mocks.NewChainSource(t)
	source.EXPECT().LatestBlock(ctx).Return(uint64(300), nil).Once()
	source.EXPECT().FetchTransfers(ctx, uint64(100), uint64(300)).
		Return(uint64(300), []types.TransferRecord{transfer(150, 0, common.Address{}, alice, "1")}, nil).Once()

	coord := NewCoordinator(CoordinatorConfig{Chain: "test"}, source, failingLog{}, l, log)

	_, _, err = coord.PollOnce(ctx)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, uint64(99), l.LastBlock())
	require.Zero(t, l.HoldersCount(), "ledger must not be touched when the log append fails")
}

func TestPollOnce_ReplayAfterCrashIsHarmless(t *testing.T) {
	env := newTestEnv(t, 100, 0)
	ctx := context.Background()

	records := []types.TransferRecord{transfer(150, 0, common.Address{}, alice, "5")}

	// a previous run appended the records but died before the ledger sync
	_, err := env.transfers.Append(ctx, records)
	require.NoError(t, err)

	env.source.EXPECT().LatestBlock(ctx).Return(uint64(200), nil).Once()
	env.source.EXPECT().FetchTransfers(ctx, uint64(100), uint64(200)).Return(uint64(200), records, nil).Once()

	updated, _, err := env.coord.PollOnce(ctx)
	require.NoError(t, err)
	require.True(t, updated)

	rows, err := env.transfers.ReadPartition(ctx, "202405")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	bal, _ := env.ledger.Balance(alice)
	require.True(t, decimal.RequireFromString("5").Equal(bal))
}
