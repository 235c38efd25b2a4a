package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/goran-ethernal/TokenLedger/internal/worker"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse is the overall status with the per-chain board.
type HealthResponse struct {
	Status    string               `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Chains    []worker.ChainStatus `json:"chains"`
}

// ChainSummary is one entry of the chain list.
type ChainSummary struct {
	Chain        string       `json:"chain"`
	State        worker.State `json:"state"`
	Alive        bool         `json:"alive"`
	LastBlock    uint64       `json:"last_block"`
	HoldersCount int          `json:"holders_count"`
}

// LedgerResponse describes the persisted snapshot of a chain.
type LedgerResponse struct {
	Chain        string `json:"chain"`
	StartBlock   uint64 `json:"start_block"`
	LastBlock    uint64 `json:"last_block"`
	HoldersCount int    `json:"holders_count"`
}

// BalanceResponse is the balance of one address.
type BalanceResponse struct {
	Chain     string          `json:"chain"`
	Address   string          `json:"address"`
	Balance   decimal.Decimal `json:"balance"`
	LastBlock uint64          `json:"last_block"`
}

// HolderEntry is one row of the holders ranking.
type HolderEntry struct {
	Rank    int             `json:"rank"`
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

// HoldersResponse lists the largest holders of a chain.
type HoldersResponse struct {
	Chain        string        `json:"chain"`
	LastBlock    uint64        `json:"last_block"`
	HoldersCount int           `json:"holders_count"`
	Holders      []HolderEntry `json:"holders"`
}

// PartitionsResponse lists the monthly transfer partitions of a chain.
type PartitionsResponse struct {
	Chain      string   `json:"chain"`
	Partitions []string `json:"partitions"`
}
