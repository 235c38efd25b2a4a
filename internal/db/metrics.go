package db

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	walCheckpoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenledger_wal_checkpoint_total",
			Help: "Total number of WAL checkpoint operations on transfer partitions",
		},
	)

	partitionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokenledger_partition_size_bytes",
			Help: "Size of a sealed transfer partition including WAL files",
		},
		[]string{"chain", "month"},
	)
)

func WALCheckpointInc() {
	walCheckpoints.Inc()
}

func PartitionSizeLog(chain, month string, sizeBytes int64) {
	partitionSize.WithLabelValues(chain, month).Set(float64(sizeBytes))
}
