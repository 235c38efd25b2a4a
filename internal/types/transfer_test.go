package types

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTransferRecord_Partition(t *testing.T) {
	tests := []struct {
		name      string
		timestamp uint64
		want      string
	}{
		{name: "epoch", timestamp: 0, want: "197001"},
		{name: "first second of month", timestamp: uint64(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC).Unix()), want: "202305"},
		{name: "last second of month", timestamp: uint64(time.Date(2023, 5, 31, 23, 59, 59, 0, time.UTC).Unix()), want: "202305"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := TransferRecord{Timestamp: tt.timestamp}
			require.Equal(t, tt.want, r.Partition())
			require.Equal(t, time.UTC, r.Time().Location())
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	oneAndHalf, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)

	require.Equal(t, "1.5", NormalizeAmount(oneAndHalf, 18).String())
	require.Equal(t, "1000", NormalizeAmount(big.NewInt(1000), 0).String())
	require.Equal(t, "0.000001", NormalizeAmount(big.NewInt(1), 6).String())
	require.True(t, NormalizeAmount(big.NewInt(0), 18).IsZero())
}
