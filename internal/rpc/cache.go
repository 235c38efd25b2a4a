package rpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	pkgrpc "github.com/goran-ethernal/TokenLedger/pkg/rpc"
)

const (
	cacheBlockTimestamps = "block_timestamps"
	cacheTokenMetadata   = "token_metadata"
)

type blockKey struct {
	endpoint string
	hash     common.Hash
}

type tokenKey struct {
	endpoint string
	token    common.Address
}

// TokenMetadata is the immutable part of an ERC20 contract the indexer needs.
type TokenMetadata struct {
	Symbol   string
	Decimals uint8
}

// ResponseCache memoizes RPC answers that never change for a given key: block timestamps
// by block hash and token metadata by contract. Keys include the endpoint, so one cache can be
// shared by the workers of every chain. It is safe for concurrent use.
type ResponseCache struct {
	timestamps *lru.Cache[blockKey, uint64]
	tokens     *lru.Cache[tokenKey, TokenMetadata]
}

// NewResponseCache creates a cache holding at most timestamps block timestamps and
// tokens token metadata entries.
func NewResponseCache(timestamps, tokens int) (*ResponseCache, error) {
	ts, err := lru.New[blockKey, uint64](timestamps)
	if err != nil {
		return nil, fmt.Errorf("failed to create block timestamp cache: %w", err)
	}

	tk, err := lru.New[tokenKey, TokenMetadata](tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create token metadata cache: %w", err)
	}

	return &ResponseCache{timestamps: ts, tokens: tk}, nil
}

// BlockTimestamp returns the cached timestamp of a block.
func (c *ResponseCache) BlockTimestamp(endpoint string, hash common.Hash) (uint64, bool) {
	ts, ok := c.timestamps.Get(blockKey{endpoint: endpoint, hash: hash})
	cacheLookup(cacheBlockTimestamps, ok)
	return ts, ok
}

// AddBlockTimestamp stores the timestamp of a block.
func (c *ResponseCache) AddBlockTimestamp(endpoint string, hash common.Hash, ts uint64) {
	c.timestamps.Add(blockKey{endpoint: endpoint, hash: hash}, ts)
}

// TokenMetadata returns the cached metadata of a token contract.
func (c *ResponseCache) TokenMetadata(endpoint string, token common.Address) (TokenMetadata, bool) {
	md, ok := c.tokens.Get(tokenKey{endpoint: endpoint, token: token})
	cacheLookup(cacheTokenMetadata, ok)
	return md, ok
}

// AddTokenMetadata stores the metadata of a token contract.
func (c *ResponseCache) AddTokenMetadata(endpoint string, token common.Address, md TokenMetadata) {
	c.tokens.Add(tokenKey{endpoint: endpoint, token: token}, md)
}

// Len returns the number of cached block timestamps and token metadata entries.
func (c *ResponseCache) Len() (timestamps, tokens int) {
	return c.timestamps.Len(), c.tokens.Len()
}

// ResolveBlockTimestamps returns the timestamp of every given block hash. Hashes missing from
// the cache are fetched with one batched header request and cached.
func (c *ResponseCache) ResolveBlockTimestamps(
	ctx context.Context,
	client pkgrpc.EthClient,
	hashes []common.Hash,
) (map[common.Hash]uint64, error) {
	endpoint := client.Endpoint()
	out := make(map[common.Hash]uint64, len(hashes))

	var missing []common.Hash
	for _, h := range hashes {
		if _, seen := out[h]; seen {
			continue
		}
		if ts, ok := c.BlockTimestamp(endpoint, h); ok {
			out[h] = ts
			continue
		}
		out[h] = 0
		missing = append(missing, h)
	}

	if len(missing) == 0 {
		return out, nil
	}

	headers, err := client.BatchGetBlockHeadersByHash(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %d block headers: %w", len(missing), err)
	}
	if len(headers) != len(missing) {
		return nil, fmt.Errorf("requested %d block headers, got %d", len(missing), len(headers))
	}

	for i, header := range headers {
		if header.Hash() != missing[i] {
			return nil, fmt.Errorf("header hash mismatch: requested %s, got %s", missing[i], header.Hash())
		}
		out[missing[i]] = header.Time
		c.AddBlockTimestamp(endpoint, missing[i], header.Time)
	}

	return out, nil
}
