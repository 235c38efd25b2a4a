package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/goran-ethernal/TokenLedger/internal/ledger"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/worker"
)

const (
	defaultHoldersLimit = 100
	maxHoldersLimit     = 1000
)

// ChainRegistry gives the API read access to per-chain state.
type ChainRegistry interface {
	// Chains returns the configured chain ids.
	Chains() []string
	// Status returns the live status of chain, false for an unknown chain.
	Status(chain string) (worker.ChainStatus, bool)
	// Snapshot reads the persisted balance snapshot of chain.
	Snapshot(chain string) (ledger.Snapshot, error)
	// Partitions lists the transfer partitions of chain.
	Partitions(chain string) ([]string, error)
}

// Handler handles HTTP requests for the API.
type Handler struct {
	registry ChainRegistry
	log      *logger.Logger
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(registry ChainRegistry, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log,
		now:      time.Now,
	}
}

// Health returns the overall status and the board of every chain. The status is 503 when
// any chain has no live worker.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	chains := make([]worker.ChainStatus, 0)
	healthy := true

	for _, chain := range h.registry.Chains() {
		status, ok := h.registry.Status(chain)
		if !ok {
			continue
		}
		healthy = healthy && status.Alive
		chains = append(chains, status)
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC(),
		Chains:    chains,
	}

	code := http.StatusOK
	if !healthy || len(chains) == 0 {
		response.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, response)
}

// ListChains returns a summary of every configured chain.
func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	summaries := make([]ChainSummary, 0)
	for _, chain := range h.registry.Chains() {
		status, ok := h.registry.Status(chain)
		if !ok {
			continue
		}
		summaries = append(summaries, ChainSummary{
			Chain:        chain,
			State:        status.State,
			Alive:        status.Alive,
			LastBlock:    status.LastBlock,
			HoldersCount: status.HoldersCount,
		})
	}

	respondJSON(w, http.StatusOK, summaries)
}

// GetLedger returns the block range and holder count of the chain snapshot.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	chain, snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, LedgerResponse{
		Chain:        chain,
		StartBlock:   snap.StartBlock,
		LastBlock:    snap.LastBlock,
		HoldersCount: snap.HoldersCount(),
	})
}

// GetBalance returns the balance of one address. Addresses without a balance are 404.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid address '%s'", raw))
		return
	}
	address := common.HexToAddress(raw).Hex()

	chain, snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	balance, found := snap.Balances[address]
	if !found {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no balance for %s on '%s'", address, chain))
		return
	}

	respondJSON(w, http.StatusOK, BalanceResponse{
		Chain:     chain,
		Address:   address,
		Balance:   balance,
		LastBlock: snap.LastBlock,
	})
}

// GetHolders returns the largest holders by balance, descending.
func (h *Handler) GetHolders(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chain, snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	top := ledger.TopHolders(snap.Balances, limit)
	holders := make([]HolderEntry, 0, len(top))
	for i, holder := range top {
		holders = append(holders, HolderEntry{
			Rank:    i + 1,
			Address: holder.Address.Hex(),
			Balance: holder.Balance,
		})
	}

	respondJSON(w, http.StatusOK, HoldersResponse{
		Chain:        chain,
		LastBlock:    snap.LastBlock,
		HoldersCount: snap.HoldersCount(),
		Holders:      holders,
	})
}

// GetPartitions returns the monthly transfer partitions of a chain, oldest first.
func (h *Handler) GetPartitions(w http.ResponseWriter, r *http.Request) {
	chain, ok := h.chain(w, r)
	if !ok {
		return
	}

	partitions, err := h.registry.Partitions(chain)
	if err != nil {
		h.log.Errorw("failed to list partitions", "chain", chain, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list partitions")
		return
	}
	if partitions == nil {
		partitions = []string{}
	}

	respondJSON(w, http.StatusOK, PartitionsResponse{Chain: chain, Partitions: partitions})
}

// chain resolves the chain path variable and writes a 404 for unknown chains.
func (h *Handler) chain(w http.ResponseWriter, r *http.Request) (string, bool) {
	chain := mux.Vars(r)["chain"]
	if _, ok := h.registry.Status(chain); !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("chain '%s' not found", chain))
		return "", false
	}
	return chain, true
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (string, ledger.Snapshot, bool) {
	chain, ok := h.chain(w, r)
	if !ok {
		return "", ledger.Snapshot{}, false
	}

	snap, err := h.registry.Snapshot(chain)
	switch {
	case errors.Is(err, ledger.ErrSnapshotNotFound):
		respondError(w, http.StatusNotFound, fmt.Sprintf("chain '%s' has no snapshot yet", chain))
		return "", ledger.Snapshot{}, false
	case err != nil:
		h.log.Errorw("failed to read snapshot", "chain", chain, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read snapshot")
		return "", ledger.Snapshot{}, false
	}

	return chain, snap, true
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHoldersLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxHoldersLimit {
		return 0, fmt.Errorf("invalid limit: must be between 1 and %d", maxHoldersLimit)
	}
	return limit, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding failure can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
