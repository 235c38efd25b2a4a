package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goran-ethernal/TokenLedger/internal/ledger"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/transfers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the persisted progress of every chain",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd
	fmt.Fprintln(tw, "CHAIN\tSTART\tLAST BLOCK\tHOLDERS\tPARTITIONS")

	for _, chain := range cfg.Chains {
		store, err := transfers.NewStore(chain.ID, cfg.Storage, logger.NewNopLogger())
		if err != nil {
			return err
		}
		partitions, err := store.Partitions()
		if err != nil {
			return err
		}

		path := ledger.SnapshotPath(cfg.Storage.SnapshotDir, chain.ID, cfg.Storage.SnapshotSuffix)
		snap, err := ledger.ReadSnapshot(path)
		switch {
		case errors.Is(err, ledger.ErrSnapshotNotFound):
			fmt.Fprintf(tw, "%s\t%d\t-\t-\t%d\n", chain.ID, chain.Token.StartBlock, len(partitions))
		case err != nil:
			return fmt.Errorf("chain %s: %w", chain.ID, err)
		default:
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n",
				chain.ID, snap.StartBlock, snap.LastBlock, snap.HoldersCount(), len(partitions))
		}
	}

	return tw.Flush()
}
