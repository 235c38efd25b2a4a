// Package indexer runs one poll cycle of a chain: fetch the next finalized block range,
// append its transfers to the log, fold them into the balance ledger and checkpoint.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/metrics"
	"github.com/goran-ethernal/TokenLedger/internal/types"
)

var (
	// ErrFetch marks a cycle that failed before anything was written. The next cycle retries it.
	ErrFetch = errors.New("fetch failed")

	// ErrPersistence marks a cycle that failed while writing the transfer log or the ledger.
	// In-memory state may be ahead of the persisted checkpoint.
	ErrPersistence = errors.New("persistence failed")
)

// ChainSource provides finalized transfers of one token on one chain.
type ChainSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
	FetchTransfers(ctx context.Context, fromBlock, toBlock uint64) (uint64, []types.TransferRecord, error)
}

// TransferLog is the append side of the transfer log.
type TransferLog interface {
	Append(ctx context.Context, records []types.TransferRecord) (int, error)
}

// BalanceLedger is the balance ledger with its checkpoint.
type BalanceLedger interface {
	LastBlock() uint64
	HoldersCount() int
	ApplyTransfer(from, to common.Address, amount decimal.Decimal) error
	Sync(newLastBlock uint64) error
}

// CoordinatorConfig contains configuration for the Coordinator.
type CoordinatorConfig struct {
	Chain string

	// FinalizationDelay is the number of blocks behind the head that are considered final
	FinalizationDelay uint64
}

// Coordinator wires one chain's source to its stores.
type Coordinator struct {
	cfg         CoordinatorConfig
	source      ChainSource
	transferLog TransferLog
	ledger      BalanceLedger
	log         *logger.Logger
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(
	cfg CoordinatorConfig,
	source ChainSource,
	transferLog TransferLog,
	ledger BalanceLedger,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		source:      source,
		transferLog: transferLog,
		ledger:      ledger,
		log:         log,
	}
}

// PollOnce indexes the next range of finalized blocks. updated reports whether any transfer
// was indexed; headReached whether the range ended at the finalized head. Errors wrap
// ErrFetch or ErrPersistence.
func (c *Coordinator) PollOnce(ctx context.Context) (updated, headReached bool, err error) {
	start := time.Now()
	result := "ok"
	defer func() {
		if err != nil {
			result = "fetch_error"
			if errors.Is(err, ErrPersistence) {
				result = "persistence_error"
			}
		}
		metrics.PollCycleLog(c.cfg.Chain, result, time.Since(start))
	}()

	fromBlock := c.ledger.LastBlock() + 1

	latest, err := c.source.LatestBlock(ctx)
	if err != nil {
		return false, false, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if latest < c.cfg.FinalizationDelay {
		c.log.Warnf("chain head %d is below the finalization delay %d, skipping cycle",
			latest, c.cfg.FinalizationDelay)
		result = "head_anomaly"
		return false, false, nil
	}

	target := latest - c.cfg.FinalizationDelay
	if target+1 == fromBlock {
		c.log.Debugf("no new finalized blocks, still at head %d", target)
		result = "idle"
		return false, true, nil
	}
	if target < fromBlock {
		c.log.Warnf("finalized head %d is behind the last indexed block %d, skipping cycle",
			target, fromBlock-1)
		result = "head_anomaly"
		return false, false, nil
	}

	achieved, records, err := c.source.FetchTransfers(ctx, fromBlock, target)
	if err != nil {
		return false, false, fmt.Errorf("%w: blocks %d-%d: %w", ErrFetch, fromBlock, target, err)
	}

	headReached = achieved == target

	if len(records) > 0 {
		inserted, err := c.transferLog.Append(ctx, records)
		if err != nil {
			return false, false, fmt.Errorf("%w: transfer log: %w", ErrPersistence, err)
		}
		metrics.TransfersAppendedAdd(c.cfg.Chain, inserted)

		for _, rec := range records {
			if err := c.ledger.ApplyTransfer(rec.From, rec.To, rec.Value); err != nil {
				return false, false, fmt.Errorf("%w: apply transfer %s/%d: %w",
					ErrPersistence, rec.TxHash, rec.LogIndex, err)
			}
		}
	}

	if err := c.ledger.Sync(achieved); err != nil {
		return false, false, fmt.Errorf("%w: ledger sync at %d: %w", ErrPersistence, achieved, err)
	}

	holders := c.ledger.HoldersCount()
	metrics.LastIndexedBlockSet(c.cfg.Chain, achieved)
	metrics.HoldersSet(c.cfg.Chain, holders)
	metrics.BlocksProcessedAdd(c.cfg.Chain, achieved-fromBlock+1)

	c.log.Infow("indexed block range",
		"from", fromBlock,
		"to", achieved,
		"target", target,
		"transfers", len(records),
		"holders", holders,
		"head_reached", headReached,
	)

	return len(records) > 0, headReached, nil
}
