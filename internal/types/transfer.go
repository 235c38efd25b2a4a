package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	internalcommon "github.com/goran-ethernal/TokenLedger/internal/common"
)

// TransferRecord is one decoded ERC20 transfer. Records are values; nothing mutates them
// after the fetcher produced them.
type TransferRecord struct {
	LogIndex    uint
	TxIndex     uint
	TxHash      common.Hash
	BlockHash   common.Hash
	BlockNumber uint64
	From        common.Address
	To          common.Address
	// Timestamp is the block timestamp in unix seconds.
	Timestamp uint64
	// Amount is the raw on-chain value.
	Amount *big.Int
	// Value is Amount scaled down by the token decimals.
	Value decimal.Decimal
}

// Time returns the block time in UTC.
func (r TransferRecord) Time() time.Time {
	return time.Unix(int64(r.Timestamp), 0).UTC()
}

// Partition returns the YYYYMM key of the month the transfer happened in.
func (r TransferRecord) Partition() string {
	return internalcommon.MonthKey(r.Time())
}

// NormalizeAmount scales a raw token amount by 10^decimals.
func NormalizeAmount(amount *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -int32(decimals))
}
