package worker

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// ChainStatus is the health of one chain as seen by its worker and the supervisor.
type ChainStatus struct {
	Chain        string    `json:"chain"`
	State        State     `json:"state"`
	WorkerID     string    `json:"worker_id,omitempty"`
	Alive        bool      `json:"alive"`
	Restarts     int       `json:"restarts"`
	LastBlock    uint64    `json:"last_block"`
	HoldersCount int       `json:"holders_count"`
	LastSuccess  time.Time `json:"last_success,omitzero"`
	LastError    time.Time `json:"last_error,omitzero"`
	Error        string    `json:"error,omitempty"`
}

// StatusBoard collects per-chain health. It is safe for concurrent use.
type StatusBoard struct {
	mu     sync.RWMutex
	chains map[string]*ChainStatus
	now    func() time.Time
}

// NewStatusBoard creates a board tracking the given chains.
func NewStatusBoard(chains ...string) *StatusBoard {
	b := &StatusBoard{
		chains: make(map[string]*ChainStatus, len(chains)),
		now:    time.Now,
	}
	for _, chain := range chains {
		b.chains[chain] = &ChainStatus{Chain: chain, State: StateCatchingUp}
	}
	return b
}

func (b *StatusBoard) update(chain string, fn func(s *ChainStatus)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.chains[chain]
	if !ok {
		s = &ChainStatus{Chain: chain, State: StateCatchingUp}
		b.chains[chain] = s
	}
	fn(s)
}

// WorkerStarted records a new worker generation for chain.
func (b *StatusBoard) WorkerStarted(chain, workerID string, restart bool) {
	b.update(chain, func(s *ChainStatus) {
		s.WorkerID = workerID
		s.Alive = true
		s.State = StateCatchingUp
		if restart {
			s.Restarts++
		}
	})
}

// WorkerStopped records the exit of the worker of chain.
func (b *StatusBoard) WorkerStopped(chain string, err error) {
	b.update(chain, func(s *ChainStatus) {
		s.Alive = false
		if err != nil {
			s.LastError = b.now()
			s.Error = err.Error()
		}
	})
}

// SetState records the state machine position of chain.
func (b *StatusBoard) SetState(chain string, state State) {
	b.update(chain, func(s *ChainStatus) { s.State = state })
}

// RecordSuccess records a completed poll cycle.
func (b *StatusBoard) RecordSuccess(chain string, lastBlock uint64, holders int) {
	b.update(chain, func(s *ChainStatus) {
		s.LastSuccess = b.now()
		s.LastBlock = lastBlock
		s.HoldersCount = holders
		s.Error = ""
	})
}

// RecordError records a failed poll cycle.
func (b *StatusBoard) RecordError(chain string, err error) {
	b.update(chain, func(s *ChainStatus) {
		s.LastError = b.now()
		s.Error = err.Error()
	})
}

// Get returns the status of chain.
func (b *StatusBoard) Get(chain string) (ChainStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.chains[chain]
	if !ok {
		return ChainStatus{}, false
	}
	return *s, true
}

// All returns every chain status ordered by chain id.
func (b *StatusBoard) All() []ChainStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ChainStatus, 0, len(b.chains))
	for _, chain := range slices.Sorted(maps.Keys(b.chains)) {
		out = append(out, *b.chains[chain])
	}
	return out
}

// Healthy reports whether every tracked chain has a live worker.
func (b *StatusBoard) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.chains {
		if !s.Alive {
			return false
		}
	}
	return len(b.chains) > 0
}
