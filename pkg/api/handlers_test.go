package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	apimocks "github.com/goran-ethernal/TokenLedger/internal/api/mocks"
	"github.com/goran-ethernal/TokenLedger/internal/ledger"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/worker"
	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

const (
	aliceAddr = "0x1111111111111111111111111111111111111111"
	bobAddr   = "0x2222222222222222222222222222222222222222"
	carolAddr = "0x3333333333333333333333333333333333333333"
)

func testSnapshot() ledger.Snapshot {
	return ledger.Snapshot{
		StartBlock: 100,
		LastBlock:  250,
		Balances: map[string]decimal.Decimal{
			aliceAddr: decimal.RequireFromString("10.5"),
			bobAddr:   decimal.RequireFromString("1000"),
			carolAddr: decimal.RequireFromString("0.000000000000000001"),
		},
	}
}

func ethStatus() worker.ChainStatus {
	return worker.ChainStatus{
		Chain:        "ethereum",
		State:        worker.StateAtHead,
		WorkerID:     "id-1",
		Alive:        true,
		LastBlock:    250,
		HoldersCount: 3,
	}
}

func newTestHandler(t *testing.T, registry ChainRegistry) http.Handler {
	t.Helper()

	cfg := &config.APIConfig{Enabled: true, ListenAddress: "localhost:0"}
	return NewServer(cfg, registry, logger.NewNopLogger()).Handler()
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSON(w, http.StatusCreated, map[string]string{"message": "success"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"message":"success"}`, w.Body.String())

	w = httptest.NewRecorder()
	respondJSON(w, http.StatusOK, make(chan int))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Failed to encode response")
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondError(w, http.StatusNotFound, "resource not found")

	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[ErrorResponse](t, w)
	require.Equal(t, "Not Found", resp.Error)
	require.Equal(t, "resource not found", resp.Message)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	polygon := worker.ChainStatus{Chain: "polygon", State: worker.StateCatchingUp, Alive: true}

	tests := []struct {
		name       string
		polygon    worker.ChainStatus
		wantCode   int
		wantStatus string
	}{
		{
			name:       "all workers alive",
			polygon:    polygon,
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "one worker dead",
			polygon: func() worker.ChainStatus {
				s := polygon
				s.Alive = false
				s.Error = "disk full"
				return s
			}(),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := apimocks.NewChainRegistry(t)
			registry.EXPECT().Chains().Return([]string{"ethereum", "polygon"})
			registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
			registry.EXPECT().Status("polygon").Return(tt.polygon, true)

			w := serve(t, newTestHandler(t, registry), "/health")
			require.Equal(t, tt.wantCode, w.Code)

			resp := decode[HealthResponse](t, w)
			require.Equal(t, tt.wantStatus, resp.Status)
			require.Len(t, resp.Chains, 2)
			require.Equal(t, "ethereum", resp.Chains[0].Chain)
			require.Equal(t, tt.polygon.Error, resp.Chains[1].Error)
			require.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestHandler_Health_NoChains(t *testing.T) {
	t.Parallel()

	registry := apimocks.NewChainRegistry(t)
	registry.EXPECT().Chains().Return(nil)

	w := serve(t, newTestHandler(t, registry), "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_ListChains(t *testing.T) {
	t.Parallel()

	registry := apimocks.NewChainRegistry(t)
	registry.EXPECT().Chains().Return([]string{"ethereum"})
	registry.EXPECT().Status("ethereum").Return(ethStatus(), true)

	w := serve(t, newTestHandler(t, registry), "/api/v1/chains")
	require.Equal(t, http.StatusOK, w.Code)

	chains := decode[[]ChainSummary](t, w)
	require.Equal(t, []ChainSummary{{
		Chain:        "ethereum",
		State:        worker.StateAtHead,
		Alive:        true,
		LastBlock:    250,
		HoldersCount: 3,
	}}, chains)
}

func TestHandler_GetLedger(t *testing.T) {
	t.Parallel()

	registry := apimocks.NewChainRegistry(t)
	registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
	registry.EXPECT().Snapshot("ethereum").Return(testSnapshot(), nil)

	w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/ledger")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, LedgerResponse{
		Chain:        "ethereum",
		StartBlock:   100,
		LastBlock:    250,
		HoldersCount: 3,
	}, decode[LedgerResponse](t, w))
}

func TestHandler_UnknownChain(t *testing.T) {
	t.Parallel()

	paths := []string{
		"/api/v1/chains/gnosis/ledger",
		"/api/v1/chains/gnosis/balances/" + aliceAddr,
		"/api/v1/chains/gnosis/holders",
		"/api/v1/chains/gnosis/partitions",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			registry := apimocks.NewChainRegistry(t)
			registry.EXPECT().Status("gnosis").Return(worker.ChainStatus{}, false)

			w := serve(t, newTestHandler(t, registry), path)
			require.Equal(t, http.StatusNotFound, w.Code)
			require.Contains(t, decode[ErrorResponse](t, w).Message, "chain 'gnosis' not found")
		})
	}
}

func TestHandler_SnapshotErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "no snapshot yet",
			err:      ledger.ErrSnapshotNotFound,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unreadable snapshot",
			err:      errors.New("corrupt snapshot"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := apimocks.NewChainRegistry(t)
			registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
			registry.EXPECT().Snapshot("ethereum").Return(ledger.Snapshot{}, tt.err)

			w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/ledger")
			require.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestHandler_GetBalance(t *testing.T) {
	t.Parallel()

	t.Run("existing holder", func(t *testing.T) {
		t.Parallel()

		registry := apimocks.NewChainRegistry(t)
		registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
		registry.EXPECT().Snapshot("ethereum").Return(testSnapshot(), nil)

		w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/balances/"+aliceAddr)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[BalanceResponse](t, w)
		require.Equal(t, aliceAddr, resp.Address)
		require.True(t, decimal.RequireFromString("10.5").Equal(resp.Balance))
		require.Equal(t, uint64(250), resp.LastBlock)
	})

	t.Run("lowercase address is normalized", func(t *testing.T) {
		t.Parallel()

		lower := "0xb0b195aefa3650a6908f15cdac7d92f8a5791b0b"
		checksummed := common.HexToAddress(lower).Hex()
		snap := testSnapshot()
		snap.Balances[checksummed] = decimal.NewFromInt(7)

		registry := apimocks.NewChainRegistry(t)
		registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
		registry.EXPECT().Snapshot("ethereum").Return(snap, nil)

		w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/balances/"+lower)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, checksummed, decode[BalanceResponse](t, w).Address)
	})

	t.Run("address without balance", func(t *testing.T) {
		t.Parallel()

		registry := apimocks.NewChainRegistry(t)
		registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
		registry.EXPECT().Snapshot("ethereum").Return(testSnapshot(), nil)

		w := serve(t, newTestHandler(t, registry),
			"/api/v1/chains/ethereum/balances/0x4444444444444444444444444444444444444444")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()

		registry := apimocks.NewChainRegistry(t)

		w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/balances/0x1234")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_GetHolders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantOrder []string
	}{
		{
			name:      "default limit",
			wantCode:  http.StatusOK,
			wantOrder: []string{bobAddr, aliceAddr, carolAddr},
		},
		{
			name:      "limited",
			query:     "?limit=2",
			wantCode:  http.StatusOK,
			wantOrder: []string{bobAddr, aliceAddr},
		},
		{
			name:     "zero limit",
			query:    "?limit=0",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "limit too large",
			query:    "?limit=1001",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "limit not a number",
			query:    "?limit=ten",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := apimocks.NewChainRegistry(t)
			if tt.wantCode == http.StatusOK {
				registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
				registry.EXPECT().Snapshot("ethereum").Return(testSnapshot(), nil)
			}

			w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/holders"+tt.query)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			resp := decode[HoldersResponse](t, w)
			require.Equal(t, 3, resp.HoldersCount)
			require.Len(t, resp.Holders, len(tt.wantOrder))
			for i, addr := range tt.wantOrder {
				require.Equal(t, i+1, resp.Holders[i].Rank)
				require.Equal(t, addr, resp.Holders[i].Address)
			}
		})
	}
}

func TestHandler_GetPartitions(t *testing.T) {
	t.Parallel()

	t.Run("lists partitions", func(t *testing.T) {
		t.Parallel()

		registry := apimocks.NewChainRegistry(t)
		registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
		registry.EXPECT().Partitions("ethereum").Return([]string{"202401", "202402"}, nil)

		w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/partitions")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []string{"202401", "202402"}, decode[PartitionsResponse](t, w).Partitions)
	})

	t.Run("no partitions yet", func(t *testing.T) {
		t.Parallel()

		registry := apimocks.NewChainRegistry(t)
		registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
		registry.EXPECT().Partitions("ethereum").Return(nil, nil)

		w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/partitions")
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"chain":"ethereum","partitions":[]}`, w.Body.String())
	})

	t.Run("listing fails", func(t *testing.T) {
		t.Parallel()

		registry := apimocks.NewChainRegistry(t)
		registry.EXPECT().Status("ethereum").Return(ethStatus(), true)
		registry.EXPECT().Partitions("ethereum").Return(nil, errors.New("permission denied"))

		w := serve(t, newTestHandler(t, registry), "/api/v1/chains/ethereum/partitions")
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	registry := apimocks.NewChainRegistry(t)
	h := newTestHandler(t, registry)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/chains", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandler_FixedClock(t *testing.T) {
	t.Parallel()

	registry := apimocks.NewChainRegistry(t)
	registry.EXPECT().Chains().Return([]string{"ethereum"})
	registry.EXPECT().Status("ethereum").Return(ethStatus(), true)

	handler := NewHandler(registry, logger.NewNopLogger())
	fixed := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return fixed }

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, fixed, decode[HealthResponse](t, w).Timestamp)
}
