package main

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/TokenLedger/internal/common"
	"github.com/goran-ethernal/TokenLedger/internal/fetcher"
	"github.com/goran-ethernal/TokenLedger/internal/indexer"
	"github.com/goran-ethernal/TokenLedger/internal/ledger"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/rpc"
	"github.com/goran-ethernal/TokenLedger/internal/transfers"
	"github.com/goran-ethernal/TokenLedger/internal/worker"
	pkgconfig "github.com/goran-ethernal/TokenLedger/pkg/config"
)

// app holds the process-wide dependencies shared by every worker generation.
type app struct {
	cfg     *pkgconfig.Config
	chains  map[string]pkgconfig.ChainConfig
	clients map[string]*rpc.Client
	cache   *rpc.ResponseCache
	board   *worker.StatusBoard
}

func newApp(ctx context.Context, cfg *pkgconfig.Config) (*app, error) {
	cache, err := rpc.NewResponseCache(cfg.Cache.BlockTimestamps, cfg.Cache.TokenMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc cache: %w", err)
	}

	a := &app{
		cfg:     cfg,
		chains:  make(map[string]pkgconfig.ChainConfig, len(cfg.Chains)),
		clients: make(map[string]*rpc.Client, len(cfg.Chains)),
		cache:   cache,
	}

	ids := make([]string, 0, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		client, err := a.dial(ctx, chain)
		if err != nil {
			a.Close()
			return nil, err
		}

		a.chains[chain.ID] = chain
		a.clients[chain.ID] = client
		ids = append(ids, chain.ID)
	}
	a.board = worker.NewStatusBoard(ids...)

	return a, nil
}

func (a *app) dial(ctx context.Context, chain pkgconfig.ChainConfig) (*rpc.Client, error) {
	client, err := rpc.NewClient(ctx, chain.RPC.URL,
		rpc.WithRetry(a.cfg.Retry),
		rpc.WithRateLimit(chain.RPC.RequestsPerSecond, chain.RPC.Burst),
		rpc.WithLogger(a.logger(common.ComponentRPC, chain.ID)),
	)
	if err != nil {
		return nil, fmt.Errorf("chain %s: failed to create RPC client: %w", chain.ID, err)
	}
	return client, nil
}

func (a *app) logger(component, chain string) *logger.Logger {
	return logger.NewComponentLoggerFromConfig(component, a.cfg.Logging).WithChain(chain)
}

// chainIDs returns the chain ids in configuration order.
func (a *app) chainIDs() []string {
	ids := make([]string, 0, len(a.cfg.Chains))
	for _, chain := range a.cfg.Chains {
		ids = append(ids, chain.ID)
	}
	return ids
}

func (a *app) fetcher(chain pkgconfig.ChainConfig) *fetcher.TransferFetcher {
	return fetcher.NewTransferFetcher(
		fetcher.TransferFetcherConfig{
			Chain:         chain.ID,
			Token:         chain.TokenAddress(),
			MaxBlockRange: chain.RPC.HistoryBlockRange,
		},
		a.logger(common.ComponentFetcher, chain.ID),
		a.clients[chain.ID],
		a.cache,
	)
}

func (a *app) snapshotPath(chain string) string {
	return ledger.SnapshotPath(a.cfg.Storage.SnapshotDir, chain, a.cfg.Storage.SnapshotSuffix)
}

// newWorker builds one worker generation. The ledger is loaded from its snapshot on every
// call, so a restarted worker resumes from the last persisted block.
func (a *app) newWorker(ctx context.Context, chainID, workerID string) (worker.Runner, error) {
	chain, ok := a.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("unknown chain %q", chainID)
	}

	log := a.logger(common.ComponentChainWorker, chainID)
	source := a.fetcher(chain)

	md, err := source.TokenMetadata(ctx)
	if err != nil {
		log.Warnw("failed to read token metadata, retrying on first poll",
			"worker_id", workerID, "error", err)
	} else {
		log.Infow("indexing token", "worker_id", workerID,
			"token", chain.TokenAddress(), "symbol", md.Symbol, "decimals", md.Decimals)
	}

	balances, err := ledger.Open(a.snapshotPath(chainID), chain.Token.StartBlock,
		a.logger(common.ComponentLedger, chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	store, err := transfers.NewStore(chainID, a.cfg.Storage, a.logger(common.ComponentTransferLog, chainID))
	if err != nil {
		return nil, err
	}

	coordinator := indexer.NewCoordinator(
		indexer.CoordinatorConfig{Chain: chainID, FinalizationDelay: chain.Finalization},
		source,
		store,
		balances,
		a.logger(common.ComponentCoordinator, chainID),
	)

	w := worker.NewChainWorker(
		worker.ChainWorkerConfig{
			Chain:           chainID,
			WorkerID:        workerID,
			CatchUpInterval: chain.CatchUpInterval.Duration,
			PullInterval:    chain.EventsPullInterval.Duration,
		},
		coordinator,
		balances,
		a.board,
		log,
	)

	return &chainRunner{worker: w, store: store, log: log}, nil
}

func (a *app) registry() *chainRegistry {
	return &chainRegistry{app: a}
}

// Close releases the RPC connections.
func (a *app) Close() {
	for _, client := range a.clients {
		client.Close()
	}
}

// chainRunner closes the transfer partitions of a generation when its worker exits.
type chainRunner struct {
	worker *worker.ChainWorker
	store  *transfers.Store
	log    *logger.Logger
}

func (r *chainRunner) Run(ctx context.Context) error {
	defer func() {
		if err := r.store.Close(); err != nil {
			r.log.Warnw("failed to close transfer partitions", "error", err)
		}
	}()

	return r.worker.Run(ctx)
}

// chainRegistry serves the read API from the status board and the files on disk.
type chainRegistry struct {
	app *app
}

func (r *chainRegistry) Chains() []string {
	return r.app.chainIDs()
}

func (r *chainRegistry) Status(chain string) (worker.ChainStatus, bool) {
	return r.app.board.Get(chain)
}

func (r *chainRegistry) Snapshot(chain string) (ledger.Snapshot, error) {
	return ledger.ReadSnapshot(r.app.snapshotPath(chain))
}

func (r *chainRegistry) Partitions(chain string) ([]string, error) {
	store, err := transfers.NewStore(chain, r.app.cfg.Storage, logger.NewNopLogger())
	if err != nil {
		return nil, err
	}
	return store.Partitions()
}
