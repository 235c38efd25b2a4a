package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goran-ethernal/TokenLedger/internal/config"
	pkgconfig "github.com/goran-ethernal/TokenLedger/pkg/config"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║           TokenLedger v%s              ║
║   Multi-chain ERC20 transfer indexer      ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	envFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "TokenLedger - multi-chain ERC20 transfer indexer",
	Long: `TokenLedger indexes the Transfer events of one ERC20 token on several chains.
Every chain keeps an append-only log of transfers in monthly SQLite partitions and
a balance snapshot of every holder, updated as finalized blocks arrive.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
	RunE: runIndexer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	rootCmd.AddCommand(runCmd, recalculateCmd, exportCmd, statusCmd, schemaCmd)
}

func loadConfig() (*pkgconfig.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// selectChains returns the configured chains, or only the one named by id.
func selectChains(cfg *pkgconfig.Config, id string) ([]pkgconfig.ChainConfig, error) {
	if id == "" {
		return cfg.Chains, nil
	}

	chain, ok := cfg.Chain(id)
	if !ok {
		return nil, fmt.Errorf("chain %q is not configured", id)
	}
	return []pkgconfig.ChainConfig{*chain}, nil
}
