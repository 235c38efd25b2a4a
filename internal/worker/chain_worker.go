// Package worker drives the per-chain polling loops and keeps one of them alive per chain.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/goran-ethernal/TokenLedger/internal/indexer"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/metrics"
)

// State is the polling mode of a chain worker.
type State string

const (
	// StateCatchingUp polls back to back, separated by the catch-up interval
	StateCatchingUp State = "catching_up"

	// StateAtHead polls on a fixed phase-aligned schedule
	StateAtHead State = "at_head"
)

// String returns the string representation of State.
func (s State) String() string {
	return string(s)
}

// Poller runs one indexing cycle.
type Poller interface {
	PollOnce(ctx context.Context) (updated, headReached bool, err error)
}

// Progress exposes the ledger position reported on the status board.
type Progress interface {
	LastBlock() uint64
	HoldersCount() int
}

// ChainWorkerConfig contains configuration for a ChainWorker.
type ChainWorkerConfig struct {
	Chain    string
	WorkerID string

	// CatchUpInterval is the pause between polls while catching up
	CatchUpInterval time.Duration

	// PullInterval is the period of polls at head
	PullInterval time.Duration
}

// ChainWorker runs the catch-up / at-head state machine of one chain.
type ChainWorker struct {
	cfg      ChainWorkerConfig
	poller   Poller
	progress Progress
	board    *StatusBoard
	log      *logger.Logger

	now   func() time.Time
	state State
}

// NewChainWorker creates a worker in the catching_up state.
func NewChainWorker(
	cfg ChainWorkerConfig,
	poller Poller,
	progress Progress,
	board *StatusBoard,
	log *logger.Logger,
) *ChainWorker {
	return &ChainWorker{
		cfg:      cfg,
		poller:   poller,
		progress: progress,
		board:    board,
		log:      log,
		now:      time.Now,
		state:    StateCatchingUp,
	}
}

// State returns the current state.
func (w *ChainWorker) State() State {
	return w.state
}

// Run polls until ctx is cancelled or a persistence failure occurs. Fetch failures are logged
// and retried on the next tick without changing state. Cancellation returns nil.
func (w *ChainWorker) Run(ctx context.Context) error {
	w.log.Infow("chain worker started", "worker_id", w.cfg.WorkerID, "state", w.state)
	w.setState(w.state)

	var next time.Time
	for {
		updated, headReached, err := w.poller.PollOnce(ctx)
		switch {
		case err == nil:
			w.board.RecordSuccess(w.cfg.Chain, w.progress.LastBlock(), w.progress.HoldersCount())
			if updated {
				w.log.Debugf("ledger updated, last block %d", w.progress.LastBlock())
			}
			next = w.transition(headReached, next)

		case ctx.Err() != nil:
			w.log.Info("chain worker stopped")
			return nil

		case errors.Is(err, indexer.ErrPersistence):
			w.board.RecordError(w.cfg.Chain, err)
			w.log.Errorw("persistence failure, stopping worker", "error", err)
			return err

		default:
			w.board.RecordError(w.cfg.Chain, err)
			w.log.Warnw("poll cycle failed, retrying on next tick", "error", err, "state", w.state)
		}

		var wait time.Duration
		if w.state == StateCatchingUp {
			wait = w.cfg.CatchUpInterval
		} else {
			now := w.now()
			next = nextTick(next, now, w.cfg.PullInterval)
			wait = next.Sub(now)
		}

		if !sleep(ctx, wait) {
			w.log.Info("chain worker stopped")
			return nil
		}
	}
}

// transition applies the outcome of a successful poll and returns the at-head schedule anchor.
func (w *ChainWorker) transition(headReached bool, next time.Time) time.Time {
	switch {
	case w.state == StateCatchingUp && headReached:
		w.log.Infof("reached finalized head at block %d, polling every %s",
			w.progress.LastBlock(), w.cfg.PullInterval)
		w.setState(StateAtHead)
		return w.now()

	case w.state == StateAtHead && !headReached:
		w.log.Infof("fell behind the finalized head at block %d, catching up", w.progress.LastBlock())
		w.setState(StateCatchingUp)
	}

	return next
}

func (w *ChainWorker) setState(state State) {
	w.state = state
	w.board.SetState(w.cfg.Chain, state)
	metrics.WorkerStateSet(w.cfg.Chain, state.String())
}

// nextTick advances a phase-aligned schedule: the result is the first point after now on the
// grid next + k*delay. A schedule that is not behind moves by exactly one delay.
func nextTick(next, now time.Time, delay time.Duration) time.Time {
	if delay <= 0 {
		return now
	}

	elapsed := max(now.Sub(next), 0)
	return next.Add(elapsed/delay*delay + delay)
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
