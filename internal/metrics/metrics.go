package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker states as exported in the worker_state gauge.
var WorkerStates = []string{"catching_up", "at_head"}

var (
	// Indexing metrics
	LastIndexedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenledger_last_indexed_block",
			Help: "The last block number included in the balance ledger",
		},
		[]string{"chain"},
	)

	Holders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenledger_holders",
			Help: "Number of addresses with a non-zero balance",
		},
		[]string{"chain"},
	)

	TransfersAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenledger_transfers_appended_total",
			Help: "Transfer records written to the transfer log",
		},
		[]string{"chain"},
	)

	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenledger_poll_cycles_total",
			Help: "Poll cycles by result",
		},
		[]string{"chain", "result"},
	)

	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenledger_poll_duration_seconds",
			Help:    "Duration of one poll cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenledger_blocks_processed_total",
			Help: "Total number of blocks covered by poll cycles",
		},
		[]string{"chain"},
	)

	// Supervision metrics
	WorkerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenledger_worker_state",
			Help: "Current worker state (1 for the active state)",
		},
		[]string{"chain", "state"},
	)

	WorkersAlive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenledger_workers_alive",
			Help: "Number of running chain workers",
		},
	)

	WorkerRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenledger_worker_restarts_total",
			Help: "Chain workers restarted by the supervisor",
		},
		[]string{"chain"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenledger_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenledger_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenledger_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func LastIndexedBlockSet(chain string, blockNum uint64) {
	LastIndexedBlock.WithLabelValues(chain).Set(float64(blockNum))
}

func HoldersSet(chain string, count int) {
	Holders.WithLabelValues(chain).Set(float64(count))
}

func TransfersAppendedAdd(chain string, count int) {
	TransfersAppended.WithLabelValues(chain).Add(float64(count))
}

func BlocksProcessedAdd(chain string, count uint64) {
	BlocksProcessed.WithLabelValues(chain).Add(float64(count))
}

func PollCycleLog(chain, result string, duration time.Duration) {
	PollCycles.WithLabelValues(chain, result).Inc()
	PollDuration.WithLabelValues(chain).Observe(duration.Seconds())
}

// WorkerStateSet marks state as the active state of chain.
func WorkerStateSet(chain, state string) {
	for _, s := range WorkerStates {
		v := float64(0)
		if s == state {
			v = 1
		}
		WorkerState.WithLabelValues(chain, s).Set(v)
	}
}

func WorkersAliveSet(count int) {
	WorkersAlive.Set(float64(count))
}

func WorkerRestartsInc(chain string) {
	WorkerRestarts.WithLabelValues(chain).Inc()
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())

	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
