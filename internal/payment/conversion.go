package payment

import (
	"fmt"
	"math/big"
)

// Converter translates between user-currency minor units (hundredths of the
// reference currency) and the token's raw on-chain units. Both directions
// are exact integer arithmetic; no floats are involved at any point.
type Converter struct {
	scale *big.Int
}

// NewConverter builds a converter for a token with the given decimal
// precision. One minor unit equals 10^(decimals-2) raw units, so decimals
// must be at least 2.
func NewConverter(tokenDecimals int) (*Converter, error) {
	if tokenDecimals < 2 {
		return nil, fmt.Errorf("token decimals must be >= 2, got %d", tokenDecimals)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tokenDecimals-2)), nil)
	return &Converter{scale: scale}, nil
}

// RawFromMinorUnits returns the exact raw-unit amount for minor units.
func (c *Converter) RawFromMinorUnits(amountMinorUnits int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amountMinorUnits), c.scale)
}

// MinorUnitsFromRaw returns the exact minor-unit amount for a raw amount.
// It fails when the raw amount is not a whole number of minor units or does
// not fit in an int64, rather than rounding.
func (c *Converter) MinorUnitsFromRaw(raw *big.Int) (int64, error) {
	if raw == nil {
		return 0, fmt.Errorf("raw amount is nil")
	}
	quo, rem := new(big.Int).QuoRem(raw, c.scale, new(big.Int))
	if rem.Sign() != 0 {
		return 0, fmt.Errorf("raw amount %s is not a whole number of minor units", raw.String())
	}
	if !quo.IsInt64() {
		return 0, fmt.Errorf("raw amount %s overflows minor units", raw.String())
	}
	return quo.Int64(), nil
}
