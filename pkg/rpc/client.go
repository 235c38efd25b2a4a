package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EthClient defines the interface for Ethereum RPC operations.
// Implementations retry transient failures themselves; an error returned here means
// the retry budget was exhausted or the failure is not transient.
type EthClient interface {
	// Close closes the RPC client connection.
	Close()

	// Endpoint returns the URL the client is connected to. It keys shared caches.
	Endpoint() string

	// GetLogs retrieves logs matching the given filter query.
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// GetLatestBlockHeader retrieves the latest block header.
	GetLatestBlockHeader(ctx context.Context) (*types.Header, error)

	// GetBlockHeaderByHash retrieves the header of the block with the given hash.
	GetBlockHeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error)

	// BatchGetBlockHeadersByHash retrieves headers for multiple block hashes in batch calls.
	// The result is index-aligned with hashes.
	BatchGetBlockHeadersByHash(ctx context.Context, hashes []common.Hash) ([]*types.Header, error)

	// CallContract executes a read-only contract call at the given block (nil = latest).
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *big.Int) ([]byte, error)
}
