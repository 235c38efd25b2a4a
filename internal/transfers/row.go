package transfers

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/goran-ethernal/TokenLedger/internal/codec"
	"github.com/goran-ethernal/TokenLedger/internal/types"
)

const tableName = "transfer"

// Row is a stored transfer. The raw amount is kept as four base 10^9 digits.
type Row struct {
	ID          int64          `meddler:"id,pk"`
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
	LogIndex    uint           `meddler:"log_index"`
	TxIndex     uint           `meddler:"tx_index"`
	BlockNumber uint64         `meddler:"block_number"`
	BlockHash   common.Hash    `meddler:"block_hash,hash"`
	Timestamp   uint64         `meddler:"timestamp"`
	From        common.Address `meddler:"from_address,address"`
	To          common.Address `meddler:"to_address,address"`
	A3          int64          `meddler:"a3"`
	A2          int64          `meddler:"a2"`
	A1          int64          `meddler:"a1"`
	A0          int64          `meddler:"a0"`
}

// NewRow encodes a transfer record for storage.
func NewRow(rec types.TransferRecord) (*Row, error) {
	d, err := codec.Encode(rec.Amount)
	if err != nil {
		return nil, fmt.Errorf("transfer %s/%d: %w", rec.TxHash, rec.LogIndex, err)
	}

	return &Row{
		TxHash:      rec.TxHash,
		LogIndex:    rec.LogIndex,
		TxIndex:     rec.TxIndex,
		BlockNumber: rec.BlockNumber,
		BlockHash:   rec.BlockHash,
		Timestamp:   rec.Timestamp,
		From:        rec.From,
		To:          rec.To,
		A3:          d.A3,
		A2:          d.A2,
		A1:          d.A1,
		A0:          d.A0,
	}, nil
}

// Digits returns the stored amount digits.
func (r *Row) Digits() codec.Digits {
	return codec.Digits{A3: r.A3, A2: r.A2, A1: r.A1, A0: r.A0}
}

// Amount decodes the raw amount.
func (r *Row) Amount() (*big.Int, error) {
	return codec.Decode(r.Digits())
}

// Record rebuilds the transfer record, normalizing the amount by decimals.
func (r *Row) Record(decimals uint8) (types.TransferRecord, error) {
	amount, err := r.Amount()
	if err != nil {
		return types.TransferRecord{}, fmt.Errorf("row %d: %w", r.ID, err)
	}

	return types.TransferRecord{
		LogIndex:    r.LogIndex,
		TxIndex:     r.TxIndex,
		TxHash:      r.TxHash,
		BlockHash:   r.BlockHash,
		BlockNumber: r.BlockNumber,
		From:        r.From,
		To:          r.To,
		Timestamp:   r.Timestamp,
		Amount:      amount,
		Value:       types.NormalizeAmount(amount, decimals),
	}, nil
}
