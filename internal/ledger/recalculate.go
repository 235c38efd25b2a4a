package ledger

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/transfers"
	"github.com/goran-ethernal/TokenLedger/internal/types"
)

// TransferSource streams stored transfers partition by partition.
type TransferSource interface {
	Partitions() ([]string, error)
	ScanPartition(ctx context.Context, month string, fn func(*transfers.Row) error) error
}

// Recalculate rebuilds the snapshot at path from the transfer log. Only transfers in the
// range covered by the existing snapshot, [start_block, last_block], are applied. The rebuilt
// snapshot replaces the old one atomically.
func Recalculate(
	ctx context.Context,
	src TransferSource,
	path string,
	decimals uint8,
	log *logger.Logger,
) (Snapshot, error) {
	current, err := ReadSnapshot(path)
	if err != nil {
		return Snapshot{}, err
	}

	rebuilt := New(path, current.StartBlock, log)
	rebuilt.loaded = true
	rebuilt.lastBlock = current.StartBlock - 1

	months, err := src.Partitions()
	if err != nil {
		return Snapshot{}, err
	}

	applied := 0
	for _, month := range months {
		err := src.ScanPartition(ctx, month, func(row *transfers.Row) error {
			if row.BlockNumber < current.StartBlock || row.BlockNumber > current.LastBlock {
				return nil
			}

			amount, err := row.Amount()
			if err != nil {
				return fmt.Errorf("row %d of %s: %w", row.ID, month, err)
			}

			applied++
			return rebuilt.ApplyTransfer(row.From, row.To, types.NormalizeAmount(amount, decimals))
		})
		if err != nil {
			return Snapshot{}, err
		}

		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
	}

	if err := rebuilt.Sync(current.LastBlock); err != nil {
		return Snapshot{}, err
	}

	snap := rebuilt.Snapshot()
	log.Infof("recalculated %s from %d transfers in %d partitions: %d holders (was %d)",
		path, applied, len(months), snap.HoldersCount(), current.HoldersCount())

	return snap, nil
}
