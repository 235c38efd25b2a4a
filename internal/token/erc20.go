// Package token binds the parts of the ERC20 interface the indexer uses:
// metadata reads and Transfer log decoding.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/goran-ethernal/TokenLedger/internal/rpc"
	pkgrpc "github.com/goran-ethernal/TokenLedger/pkg/rpc"
)

const erc20ABIJSON = `[
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
  {"anonymous":false,"inputs":[
    {"indexed":true,"name":"from","type":"address"},
    {"indexed":true,"name":"to","type":"address"},
    {"indexed":false,"name":"value","type":"uint256"}
  ],"name":"Transfer","type":"event"}
]`

// ErrNotTransfer is returned by ParseTransfer for logs that are not ERC20 transfers.
var ErrNotTransfer = errors.New("log is not an ERC20 Transfer")

var (
	erc20ABI = mustParseABI(erc20ABIJSON)

	// TransferTopic is keccak256("Transfer(address,address,uint256)").
	TransferTopic = erc20ABI.Events["Transfer"].ID
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ERC20 ABI: %v", err))
	}
	return parsed
}

// Transfer is a decoded Transfer event.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// ParseTransfer decodes an ERC20 Transfer log: three topics (signature, from, to) and a
// 32 byte value. ERC721 transfers share the signature but carry four topics and are rejected.
func ParseTransfer(log types.Log) (Transfer, error) {
	if len(log.Topics) != 3 || log.Topics[0] != TransferTopic {
		return Transfer{}, fmt.Errorf("%w: %d topics", ErrNotTransfer, len(log.Topics))
	}
	if len(log.Data) != common.HashLength {
		return Transfer{}, fmt.Errorf("%w: %d data bytes", ErrNotTransfer, len(log.Data))
	}

	return Transfer{
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: new(big.Int).SetBytes(log.Data),
	}, nil
}

// Reader reads token metadata through a shared response cache.
type Reader struct {
	address common.Address
	client  pkgrpc.EthClient
	cache   *rpc.ResponseCache
}

// NewReader creates a metadata reader for the token at address.
func NewReader(address common.Address, client pkgrpc.EthClient, cache *rpc.ResponseCache) *Reader {
	return &Reader{address: address, client: client, cache: cache}
}

// Address returns the token contract address.
func (r *Reader) Address() common.Address {
	return r.address
}

// Metadata returns the token symbol and decimals, calling the contract only on a cache miss.
func (r *Reader) Metadata(ctx context.Context) (rpc.TokenMetadata, error) {
	endpoint := r.client.Endpoint()
	if md, ok := r.cache.TokenMetadata(endpoint, r.address); ok {
		return md, nil
	}

	var md rpc.TokenMetadata
	if err := r.call(ctx, "decimals", &md.Decimals); err != nil {
		return rpc.TokenMetadata{}, err
	}
	if err := r.call(ctx, "symbol", &md.Symbol); err != nil {
		return rpc.TokenMetadata{}, err
	}

	r.cache.AddTokenMetadata(endpoint, r.address, md)
	return md, nil
}

func (r *Reader) call(ctx context.Context, method string, out any) error {
	input, err := erc20ABI.Pack(method)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: input}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s on %s: %w", method, r.address, err)
	}

	if err := erc20ABI.UnpackIntoInterface(out, method, output); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", method, err)
	}

	return nil
}
