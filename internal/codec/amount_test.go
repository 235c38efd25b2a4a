package codec

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()

	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "invalid number %s", s)
	return v
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Digits
	}{
		{
			name:  "zero",
			value: "0",
			want:  Digits{},
		},
		{
			name:  "below base",
			value: "999999999",
			want:  Digits{A0: 999_999_999},
		},
		{
			name:  "exactly base",
			value: "1000000000",
			want:  Digits{A1: 1},
		},
		{
			name:  "one token with 18 decimals",
			value: "1000000000000000000",
			want:  Digits{A2: 1},
		},
		{
			name:  "mixed digits",
			value: "123000000456000000789000000012",
			want:  Digits{A3: 123, A2: 456, A1: 789, A0: 12},
		},
		{
			name:  "max amount",
			value: "999999999999999999999999999999999999",
			want:  Digits{A3: 999_999_999, A2: 999_999_999, A1: 999_999_999, A0: 999_999_999},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(mustBig(t, tt.value))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			decoded, err := Decode(got)
			require.NoError(t, err)
			require.Equal(t, tt.value, decoded.String())
		})
	}
}

func TestEncode_Overflow(t *testing.T) {
	_, err := Encode(new(big.Int).Add(MaxAmount, big.NewInt(1)))
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestEncode_NegativePanics(t *testing.T) {
	require.Panics(t, func() {
		_, _ = Encode(big.NewInt(-1))
	})
}

func TestEncode_DoesNotMutateInput(t *testing.T) {
	v := mustBig(t, "123456789123456789")
	_, err := Encode(v)
	require.NoError(t, err)
	require.Equal(t, "123456789123456789", v.String())
}

func TestDecode_DigitOutOfRange(t *testing.T) {
	tests := []Digits{
		{A0: DigitBase},
		{A1: -1},
		{A3: DigitBase + 5},
	}

	for _, d := range tests {
		_, err := Decode(d)
		require.ErrorIs(t, err, ErrDigitOutOfRange)
	}

	require.Panics(t, func() { MustDecode(Digits{A2: -3}) })
}

// genDigits generates arbitrary valid digit tuples, which covers the whole [0, 10^36) domain.
func genDigits() gopter.Gen {
	digit := gen.Int64Range(0, DigitBase-1)
	return gopter.CombineGens(digit, digit, digit, digit).Map(func(vs []interface{}) Digits {
		return Digits{A3: vs[0].(int64), A2: vs[1].(int64), A1: vs[2].(int64), A0: vs[3].(int64)}
	})
}

func TestCodecProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode(encode(v)) == v", prop.ForAll(
		func(d Digits) bool {
			v := MustDecode(d)
			encoded, err := Encode(v)
			if err != nil {
				return false
			}
			return MustDecode(encoded).Cmp(v) == 0
		},
		genDigits(),
	))

	properties.Property("encoded digits stay in [0, 10^9)", prop.ForAll(
		func(d Digits) bool {
			encoded, err := Encode(MustDecode(d))
			if err != nil {
				return false
			}
			for _, digit := range []int64{encoded.A3, encoded.A2, encoded.A1, encoded.A0} {
				if digit < 0 || digit >= DigitBase {
					return false
				}
			}
			return true
		},
		genDigits(),
	))

	properties.Property("small values round trip", prop.ForAll(
		func(v uint64) bool {
			encoded, err := Encode(new(big.Int).SetUint64(v))
			if err != nil {
				return false
			}
			return MustDecode(encoded).Uint64() == v
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
