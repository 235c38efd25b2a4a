package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chainHead = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenledger_chain_head_block",
			Help: "Latest block number reported by the chain RPC",
		},
		[]string{"chain"},
	)

	transfersFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenledger_transfers_fetched_total",
			Help: "Transfer records decoded from chain logs",
		},
		[]string{"chain"},
	)

	logsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenledger_logs_skipped_total",
			Help: "Logs returned by the RPC that were not indexed, by reason",
		},
		[]string{"chain", "reason"},
	)

	rangeNarrowings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenledger_log_range_narrowings_total",
			Help: "eth_getLogs ranges narrowed after a too-many-results rejection",
		},
		[]string{"chain"},
	)
)

func chainHeadSet(chain string, block uint64) {
	chainHead.WithLabelValues(chain).Set(float64(block))
}

func transfersFetchedAdd(chain string, n int) {
	transfersFetched.WithLabelValues(chain).Add(float64(n))
}

func logSkippedInc(chain, reason string) {
	logsSkipped.WithLabelValues(chain, reason).Inc()
}

func rangeNarrowingInc(chain string) {
	rangeNarrowings.WithLabelValues(chain).Inc()
}
