package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goran-ethernal/TokenLedger/internal/common"
	"github.com/goran-ethernal/TokenLedger/internal/ledger"
	"github.com/goran-ethernal/TokenLedger/internal/transfers"
)

var recalculateChain string

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Rebuild balance snapshots from the stored transfers",
	Long: `Rebuild the balance snapshot of every chain (or of --chain) by replaying the stored
transfer partitions up to the last block of the current snapshot. The rebuilt snapshot
replaces the old one atomically. Do not run it while the indexer is running.`,
	RunE: runRecalculate,
}

func init() {
	recalculateCmd.Flags().StringVar(&recalculateChain, "chain", "", "only recalculate this chain")
}

func runRecalculate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	chains, err := selectChains(cfg, recalculateChain)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	for _, chain := range chains {
		g.Go(func() error {
			log := app.logger(common.ComponentLedger, chain.ID)

			md, err := app.fetcher(chain).TokenMetadata(gctx)
			if err != nil {
				return fmt.Errorf("chain %s: %w", chain.ID, err)
			}

			store, err := transfers.NewStore(chain.ID, cfg.Storage, app.logger(common.ComponentTransferLog, chain.ID))
			if err != nil {
				return fmt.Errorf("chain %s: %w", chain.ID, err)
			}
			defer store.Close()

			snap, err := ledger.Recalculate(gctx, store, app.snapshotPath(chain.ID), md.Decimals, log)
			if err != nil {
				return fmt.Errorf("chain %s: %w", chain.ID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: recalculated up to block %d, %d holders\n",
				chain.ID, snap.LastBlock, snap.HoldersCount())
			return nil
		})
	}

	return g.Wait()
}
