package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/pkg/config"
	pkgrpc "github.com/goran-ethernal/TokenLedger/pkg/rpc"
)

// Compile-time check to ensure Client implements pkgrpc.EthClient interface.
var _ pkgrpc.EthClient = (*Client)(nil)

const maxHeaderBatch = 100

// Client wraps the Ethereum RPC client with retries, rate limiting and metrics.
// It implements the pkgrpc.EthClient interface.
type Client struct {
	endpoint string
	eth      *ethclient.Client
	rpc      *rpc.Client

	retry   *config.RetryConfig
	limiter *rate.Limiter
	log     *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRetry sets the retry policy. Without it every call is attempted once.
func WithRetry(cfg *config.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithRateLimit caps calls to rps requests per second. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithLogger sets the logger used to report retried calls.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new RPC client connected to the given endpoint.
func NewClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}

	c := &Client{
		endpoint: endpoint,
		eth:      ethclient.NewClient(rpcClient),
		rpc:      rpcClient,
		log:      logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Endpoint returns the URL the client is connected to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetLogs retrieves logs matching the given filter query.
func (c *Client) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.call(ctx, "eth_getLogs", func(ctx context.Context) (err error) {
		logs, err = c.eth.FilterLogs(ctx, query)
		return err
	})
	return logs, err
}

// GetLatestBlockHeader retrieves the latest block header.
func (c *Client) GetLatestBlockHeader(ctx context.Context) (*types.Header, error) {
	var header *types.Header
	err := c.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) (err error) {
		header, err = c.eth.HeaderByNumber(ctx, nil)
		return err
	})
	return header, err
}

// GetBlockHeaderByHash retrieves the header of the block with the given hash.
func (c *Client) GetBlockHeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error) {
	var header *types.Header
	err := c.call(ctx, "eth_getBlockByHash", func(ctx context.Context) (err error) {
		header, err = c.eth.HeaderByHash(ctx, hash)
		return err
	})
	return header, err
}

// BatchGetBlockHeadersByHash retrieves headers for multiple block hashes, at most
// maxHeaderBatch per batch call.
func (c *Client) BatchGetBlockHeadersByHash(ctx context.Context, hashes []common.Hash) ([]*types.Header, error) {
	all := make([]*types.Header, 0, len(hashes))

	for i := 0; i < len(hashes); i += maxHeaderBatch {
		chunk := hashes[i:min(i+maxHeaderBatch, len(hashes))]
		results := make([]*types.Header, len(chunk))

		err := c.call(ctx, "batch_eth_getBlockByHash", func(ctx context.Context) error {
			batch := make([]rpc.BatchElem, len(chunk))
			for j, hash := range chunk {
				batch[j] = rpc.BatchElem{
					Method: "eth_getBlockByHash",
					Args:   []any{hash, false}, // headers only
					Result: &results[j],
				}
			}

			if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
				return err
			}

			for j, elem := range batch {
				if elem.Error != nil {
					return elem.Error
				}
				if results[j] == nil {
					return fmt.Errorf("block %s: %w", chunk[j], ethereum.NotFound)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		all = append(all, results...)
	}

	return all, nil
}

// CallContract executes a read-only contract call.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNum *big.Int) ([]byte, error) {
	var out []byte
	err := c.call(ctx, "eth_call", func(ctx context.Context) (err error) {
		out, err = c.eth.CallContract(ctx, msg, blockNum)
		return err
	})
	return out, err
}

// call runs one logical RPC operation under the retry policy. Every attempt waits for the
// rate limiter and is counted in the rpc metrics.
func (c *Client) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	return retryWithBackoff(ctx, c.retry, c.log, method, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		start := time.Now()
		RPCMethodInc(method)
		err := fn(ctx)
		RPCMethodDuration(method, time.Since(start))

		if err != nil {
			RPCMethodError(method, errorType(err))
		}
		return err
	})
}
