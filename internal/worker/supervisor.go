package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/internal/metrics"
)

// ErrAllWorkersStopped is returned by Supervisor.Run when every worker is dead at a liveness check.
var ErrAllWorkersStopped = errors.New("all chain workers stopped")

// Runner is one generation of a chain worker.
type Runner interface {
	Run(ctx context.Context) error
}

// Factory builds a fresh worker generation for chain. Every call must load state anew.
type Factory func(ctx context.Context, chain, workerID string) (Runner, error)

type handle struct {
	id   string
	done chan struct{}
}

func (h *handle) alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Supervisor keeps one worker alive per chain.
type Supervisor struct {
	chains   []string
	factory  Factory
	board    *StatusBoard
	interval time.Duration
	log      *logger.Logger

	workers map[string]*handle
	wg      sync.WaitGroup
}

// NewSupervisor creates a supervisor for chains that checks liveness every interval.
func NewSupervisor(
	chains []string,
	factory Factory,
	board *StatusBoard,
	interval time.Duration,
	log *logger.Logger,
) *Supervisor {
	return &Supervisor{
		chains:   chains,
		factory:  factory,
		board:    board,
		interval: interval,
		log:      log,
		workers:  make(map[string]*handle, len(chains)),
	}
}

// Run starts every chain worker, then restarts dead workers on each liveness check. It returns
// nil after ctx is cancelled and all workers have exited, or ErrAllWorkersStopped when no
// worker is alive at a check.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.chains) == 0 {
		return errors.New("no chains to supervise")
	}

	defer s.wg.Wait()

	for {
		var stopped []string

		if len(s.workers) == 0 {
			stopped = s.chains
		} else {
			if !sleep(ctx, s.interval) {
				s.log.Info("supervisor stopping, waiting for workers")
				return nil
			}

			for _, chain := range s.chains {
				if !s.workers[chain].alive() {
					s.log.Warnw("chain worker is not alive", "chain", chain)
					stopped = append(stopped, chain)
				}
			}

			if len(stopped) == len(s.workers) {
				s.log.Error("all chain workers stopped, exiting")
				return ErrAllWorkersStopped
			}
		}

		for _, chain := range stopped {
			s.start(ctx, chain)
		}
		metrics.WorkersAliveSet(s.aliveCount())
	}
}

func (s *Supervisor) start(ctx context.Context, chain string) {
	_, restart := s.workers[chain]
	if restart {
		metrics.WorkerRestartsInc(chain)
		s.log.Infow("restarting chain worker", "chain", chain)
	}

	id := uuid.NewString()
	h := &handle{id: id, done: make(chan struct{})}
	s.workers[chain] = h
	s.board.WorkerStarted(chain, id, restart)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(h.done)

		err := s.runWorker(ctx, chain, id)
		if err != nil {
			s.log.Errorw("chain worker exited", "chain", chain, "worker_id", id, "error", err)
		}
		s.board.WorkerStopped(chain, err)
	}()
}

// runWorker builds and runs one generation. A panic counts as a worker failure.
func (s *Supervisor) runWorker(ctx context.Context, chain, id string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panicked: %v", r)
		}
	}()

	w, err := s.factory(ctx, chain, id)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	return w.Run(ctx)
}

func (s *Supervisor) aliveCount() int {
	n := 0
	for _, h := range s.workers {
		if h.alive() {
			n++
		}
	}
	return n
}
