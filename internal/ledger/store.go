// Package ledger keeps the running token balance of every holder of one chain, checkpointed
// together with the last indexed block in a single JSON snapshot.
package ledger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
)

var (
	// ErrCheckpointRegression is returned by Sync when the new last block is below the current one.
	ErrCheckpointRegression = errors.New("checkpoint cannot move backwards")

	// ErrNotLoaded is returned when the store is used before Load.
	ErrNotLoaded = errors.New("ledger not loaded")

	// ErrNegativeAmount is returned for transfers of a negative amount.
	ErrNegativeAmount = errors.New("negative transfer amount")
)

// Holder is one address and its balance.
type Holder struct {
	Address common.Address
	Balance decimal.Decimal
}

// Store is the in-memory balance ledger of one chain backed by its snapshot file.
// One worker owns a Store; reads from other goroutines are safe.
type Store struct {
	path       string
	startBlock uint64
	log        *logger.Logger

	mu        sync.RWMutex
	loaded    bool
	lastBlock uint64
	balances  map[common.Address]decimal.Decimal
}

// New creates a store for the snapshot at path. Nothing is read until Load.
func New(path string, startBlock uint64, log *logger.Logger) *Store {
	return &Store{
		path:       path,
		startBlock: startBlock,
		log:        log,
		balances:   make(map[common.Address]decimal.Decimal),
	}
}

// Open creates and loads a store.
func Open(path string, startBlock uint64, log *logger.Logger) (*Store, error) {
	s := New(path, startBlock, log)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the snapshot file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot once. Without a snapshot the ledger starts empty at start_block-1.
// A snapshot that cannot be decoded is an error; it is never silently replaced.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	snap, err := ReadSnapshot(s.path)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		s.lastBlock = s.startBlock - 1
		s.log.Infof("no snapshot at %s, starting at block %d", s.path, s.startBlock)

	case err != nil:
		return err

	default:
		if snap.StartBlock != s.startBlock {
			s.log.Warnf("snapshot start block %d differs from configured %d, keeping snapshot value",
				snap.StartBlock, s.startBlock)
			s.startBlock = snap.StartBlock
		}
		if snap.LastBlock+1 < snap.StartBlock {
			return fmt.Errorf("corrupt snapshot %s: last block %d before start block %d",
				s.path, snap.LastBlock, snap.StartBlock)
		}

		s.lastBlock = snap.LastBlock
		for key, bal := range snap.Balances {
			if bal.IsZero() {
				continue
			}
			s.balances[common.HexToAddress(key)] = bal
		}
		s.log.Infof("loaded snapshot at block %d with %d holders", s.lastBlock, len(s.balances))
	}

	s.loaded = true
	return nil
}

// StartBlock returns the first block the ledger covers.
func (s *Store) StartBlock() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startBlock
}

// LastBlock returns the last block whose transfers are included in the ledger.
func (s *Store) LastBlock() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBlock
}

// HoldersCount returns the number of addresses with a non-zero balance.
func (s *Store) HoldersCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.balances)
}

// Balance returns the balance of addr.
func (s *Store) Balance(addr common.Address) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, ok := s.balances[addr]
	return bal, ok
}

// ApplyTransfer moves amount from one holder to another. The zero address is mint on the
// sending side and burn on the receiving side and carries no balance. Balances that reach zero
// are removed.
func (s *Store) ApplyTransfer(from, to common.Address, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNotLoaded
	}

	if from != (common.Address{}) {
		s.add(from, amount.Neg())
	}
	if to != (common.Address{}) {
		s.add(to, amount)
	}

	return nil
}

func (s *Store) add(addr common.Address, delta decimal.Decimal) {
	bal := s.balances[addr].Add(delta)
	if bal.IsZero() {
		delete(s.balances, addr)
		return
	}
	s.balances[addr] = bal
}

// Sync persists the balances with newLastBlock as the checkpoint.
func (s *Store) Sync(newLastBlock uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNotLoaded
	}
	if newLastBlock < s.lastBlock {
		return fmt.Errorf("%w: %d < %d", ErrCheckpointRegression, newLastBlock, s.lastBlock)
	}

	if err := writeSnapshot(s.path, s.snapshotLocked(newLastBlock)); err != nil {
		return err
	}

	s.lastBlock = newLastBlock
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(s.lastBlock)
}

func (s *Store) snapshotLocked(lastBlock uint64) Snapshot {
	balances := make(map[string]decimal.Decimal, len(s.balances))
	for addr, bal := range s.balances {
		balances[addr.Hex()] = bal
	}

	return Snapshot{
		StartBlock: s.startBlock,
		LastBlock:  lastBlock,
		Balances:   balances,
	}
}

// TopHolders returns up to limit holders by descending balance. Ties keep key order.
func TopHolders(balances map[string]decimal.Decimal, limit int) []Holder {
	holders := make([]Holder, 0, len(balances))
	for _, key := range slices.Sorted(maps.Keys(balances)) {
		holders = append(holders, Holder{Address: common.HexToAddress(key), Balance: balances[key]})
	}

	slices.SortStableFunc(holders, func(a, b Holder) int {
		return b.Balance.Cmp(a.Balance)
	})

	if limit > 0 && len(holders) > limit {
		holders = holders[:limit]
	}
	return holders
}
