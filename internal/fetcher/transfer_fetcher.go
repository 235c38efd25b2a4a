package fetcher

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
	irpc "github.com/goran-ethernal/TokenLedger/internal/rpc"
	"github.com/goran-ethernal/TokenLedger/internal/token"
	"github.com/goran-ethernal/TokenLedger/internal/types"
	"github.com/goran-ethernal/TokenLedger/pkg/rpc"
)

// ErrInvalidRange is returned when the requested range starts after it ends.
var ErrInvalidRange = errors.New("invalid block range")

// TransferFetcherConfig contains configuration for the TransferFetcher.
type TransferFetcherConfig struct {
	// Chain is the chain id used in logs and metrics
	Chain string

	// Token is the ERC20 contract whose Transfer events are fetched
	Token ethcommon.Address

	// MaxBlockRange caps the span of one eth_getLogs call
	MaxBlockRange uint64
}

// TransferFetcher turns block ranges into transfer records for one token on one chain.
type TransferFetcher struct {
	cfg   TransferFetcherConfig
	rpc   rpc.EthClient
	cache *irpc.ResponseCache
	token *token.Reader
	log   *logger.Logger
}

// NewTransferFetcher creates a new TransferFetcher instance.
func NewTransferFetcher(
	cfg TransferFetcherConfig,
	log *logger.Logger,
	rpcClient rpc.EthClient,
	cache *irpc.ResponseCache,
) *TransferFetcher {
	return &TransferFetcher{
		cfg:   cfg,
		rpc:   rpcClient,
		cache: cache,
		token: token.NewReader(cfg.Token, rpcClient, cache),
		log:   log,
	}
}

// TokenMetadata returns the symbol and decimals of the indexed token.
func (f *TransferFetcher) TokenMetadata(ctx context.Context) (irpc.TokenMetadata, error) {
	return f.token.Metadata(ctx)
}

// LatestBlock returns the current chain head.
func (f *TransferFetcher) LatestBlock(ctx context.Context) (uint64, error) {
	header, err := f.rpc.GetLatestBlockHeader(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block header: %w", err)
	}

	head := header.Number.Uint64()
	chainHeadSet(f.cfg.Chain, head)
	return head, nil
}

// FetchTransfers fetches the transfers in [fromBlock, min(fromBlock+MaxBlockRange, toBlock)] and
// returns the upper bound actually covered. The bound can be lower when the RPC rejects the
// range as too large. Callers call again from achieved+1 to make further progress.
func (f *TransferFetcher) FetchTransfers(
	ctx context.Context,
	fromBlock, toBlock uint64,
) (uint64, []types.TransferRecord, error) {
	if fromBlock > toBlock {
		return 0, nil, fmt.Errorf("%w: from %d > to %d", ErrInvalidRange, fromBlock, toBlock)
	}

	md, err := f.token.Metadata(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read token metadata: %w", err)
	}

	end := min(fromBlock+f.cfg.MaxBlockRange, toBlock)
	logs, achieved, err := f.fetchLogs(ctx, fromBlock, end)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to fetch logs in range %d-%d: %w", fromBlock, end, err)
	}

	records, err := f.decode(ctx, logs, md.Decimals)
	if err != nil {
		return 0, nil, err
	}

	f.log.Debugf("fetched %d transfers in range %d-%d (requested up to %d)",
		len(records), fromBlock, achieved, toBlock,
	)
	transfersFetchedAdd(f.cfg.Chain, len(records))

	return achieved, records, nil
}

// fetchLogs queries Transfer logs, narrowing the upper bound whenever the RPC reports too many
// results. It returns the logs and the upper bound that was actually queried.
func (f *TransferFetcher) fetchLogs(ctx context.Context, fromBlock, toBlock uint64) ([]ethtypes.Log, uint64, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []ethcommon.Address{f.cfg.Token},
		Topics:    [][]ethcommon.Hash{{token.TransferTopic}},
	}

	logs, err := f.rpc.GetLogs(ctx, query)
	if err == nil {
		return logs, toBlock, nil
	}

	tooMany, errData := irpc.IsTooManyResultsError(err)
	if !tooMany {
		return nil, 0, err
	}

	newTo, ok := narrowRange(fromBlock, toBlock, errData)
	if !ok {
		return nil, 0, fmt.Errorf("cannot split range further, single block %d has too many logs: %w", fromBlock, err)
	}

	f.log.Infof("too many logs in range %d-%d, retrying with %d-%d", fromBlock, toBlock, fromBlock, newTo)
	rangeNarrowingInc(f.cfg.Chain)

	return f.fetchLogs(ctx, fromBlock, newTo)
}

// narrowRange picks a smaller upper bound for [fromBlock, toBlock]. A provider suggestion is used
// when it keeps fromBlock; otherwise the range is halved.
func narrowRange(fromBlock, toBlock uint64, errData string) (uint64, bool) {
	if sFrom, sTo, ok := irpc.ParseSuggestedBlockRange(errData); ok && sFrom == fromBlock && sTo < toBlock {
		return sTo, true
	}

	if fromBlock == toBlock {
		return 0, false
	}

	return fromBlock + (toBlock-fromBlock)/2, true //nolint:mnd
}

func (f *TransferFetcher) decode(ctx context.Context, logs []ethtypes.Log, decimals uint8) ([]types.TransferRecord, error) {
	type decoded struct {
		log      ethtypes.Log
		transfer token.Transfer
	}

	valid := make([]decoded, 0, len(logs))
	hashes := make([]ethcommon.Hash, 0, len(logs))

	for _, l := range logs {
		if l.Removed {
			logSkippedInc(f.cfg.Chain, "removed")
			continue
		}

		tr, err := token.ParseTransfer(l)
		if err != nil {
			f.log.Warnw("skipping malformed transfer log",
				"tx_hash", l.TxHash,
				"log_index", l.Index,
				"block", l.BlockNumber,
				"error", err,
			)
			logSkippedInc(f.cfg.Chain, "malformed")
			continue
		}

		valid = append(valid, decoded{log: l, transfer: tr})
		hashes = append(hashes, l.BlockHash)
	}

	if len(valid) == 0 {
		return nil, nil
	}

	timestamps, err := f.cache.ResolveBlockTimestamps(ctx, f.rpc, hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve block timestamps: %w", err)
	}

	records := make([]types.TransferRecord, 0, len(valid))
	for _, d := range valid {
		records = append(records, types.TransferRecord{
			LogIndex:    d.log.Index,
			TxIndex:     d.log.TxIndex,
			TxHash:      d.log.TxHash,
			BlockHash:   d.log.BlockHash,
			BlockNumber: d.log.BlockNumber,
			From:        d.transfer.From,
			To:          d.transfer.To,
			Timestamp:   timestamps[d.log.BlockHash],
			Amount:      d.transfer.Value,
			Value:       types.NormalizeAmount(d.transfer.Value, decimals),
		})
	}

	slices.SortStableFunc(records, func(a, b types.TransferRecord) int {
		return cmp.Or(cmp.Compare(a.BlockNumber, b.BlockNumber), cmp.Compare(a.LogIndex, b.LogIndex))
	})

	return records, nil
}
