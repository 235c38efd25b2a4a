// Package codec stores arbitrary-precision token amounts as four base 10^9 digits,
// so they fit fixed-width integer columns.
package codec

import (
	"errors"
	"fmt"
	"math/big"
)

// DigitBase is the radix of every stored digit.
const DigitBase = 1_000_000_000

var (
	// ErrAmountOverflow is returned when a value does not fit in four digits.
	ErrAmountOverflow = errors.New("amount exceeds 10^36-1")

	// ErrDigitOutOfRange is returned when decoding a digit outside [0, 10^9).
	ErrDigitOutOfRange = errors.New("digit out of range")

	bigBase = big.NewInt(DigitBase)

	// MaxAmount is the largest encodable value, 10^36 - 1.
	MaxAmount = new(big.Int).Sub(new(big.Int).Exp(big.NewInt(10), big.NewInt(36), nil), big.NewInt(1)) //nolint:mnd
)

// Digits is an amount split as A3*10^27 + A2*10^18 + A1*10^9 + A0.
type Digits struct {
	A3 int64 `csv:"a3"`
	A2 int64 `csv:"a2"`
	A1 int64 `csv:"a1"`
	A0 int64 `csv:"a0"`
}

// Encode splits v into base 10^9 digits.
// A negative v is a programming error and panics.
func Encode(v *big.Int) (Digits, error) {
	if v.Sign() < 0 {
		panic(fmt.Sprintf("codec: cannot encode negative amount %s", v))
	}
	if v.Cmp(MaxAmount) > 0 {
		return Digits{}, fmt.Errorf("%w: %s", ErrAmountOverflow, v)
	}

	var (
		rest  = new(big.Int).Set(v)
		digit = new(big.Int)
		out   [4]int64
	)
	for i := range out {
		rest.QuoRem(rest, bigBase, digit)
		out[i] = digit.Int64()
	}

	return Digits{A3: out[3], A2: out[2], A1: out[1], A0: out[0]}, nil
}

// Decode reassembles the value encoded in d.
func Decode(d Digits) (*big.Int, error) {
	v := new(big.Int)
	for _, digit := range [4]int64{d.A3, d.A2, d.A1, d.A0} {
		if digit < 0 || digit >= DigitBase {
			return nil, fmt.Errorf("%w: %d", ErrDigitOutOfRange, digit)
		}
		v.Mul(v, bigBase)
		v.Add(v, big.NewInt(digit))
	}

	return v, nil
}

// MustDecode is Decode for digits produced by Encode.
func MustDecode(d Digits) *big.Int {
	v, err := Decode(d)
	if err != nil {
		panic(err)
	}
	return v
}
