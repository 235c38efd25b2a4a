package common

const (
	ComponentSupervisor  = "supervisor"
	ComponentChainWorker = "chain-worker"
	ComponentCoordinator = "coordinator"
	ComponentFetcher     = "transfer-fetcher"
	ComponentLedger      = "balance-ledger"
	ComponentTransferLog = "transfer-log"
	ComponentRPC         = "rpc"
	ComponentAPI         = "api"
	ComponentMetrics     = "metrics"
)

var AllComponents = map[string]struct{}{
	ComponentSupervisor:  {},
	ComponentChainWorker: {},
	ComponentCoordinator: {},
	ComponentFetcher:     {},
	ComponentLedger:      {},
	ComponentTransferLog: {},
	ComponentRPC:         {},
	ComponentAPI:         {},
	ComponentMetrics:     {},
}
