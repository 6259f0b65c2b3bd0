// Package amount converts between raw on-chain token integers and human
// decimal units, and renders values for display.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeValue is returned when a token quantity is below zero.
	ErrNegativeValue = errors.New("negative token amount")
	// ErrTooManyDecimals is returned when a value has more fractional digits than the token supports.
	ErrTooManyDecimals = errors.New("too many decimal places")
	// ErrInvalidAmount is returned for text that is not a number.
	ErrInvalidAmount = errors.New("invalid amount")
)

// MaxUint256 is the ERC-20 "unlimited" allowance.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// FromRaw scales a raw on-chain integer down by 10^decimals. A nil raw value is zero.
func FromRaw(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ToRaw scales a human amount up to the token's base units.
func ToRaw(d decimal.Decimal, decimals uint8) (*big.Int, error) {
	if d.IsNegative() {
		return nil, ErrNegativeValue
	}
	e := d.Shift(int32(decimals))
	if !e.Equal(e.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s has more than %d", ErrTooManyDecimals, d, decimals)
	}
	return e.Truncate(0).BigInt(), nil
}

// Parse reads a user-entered amount such as "100.50".
func Parse(s string, decimals uint8) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if _, err := ToRaw(d, decimals); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// IsUnlimited reports whether an allowance is the max-uint256 approval or close
// enough that any realistic spend fits under it.
func IsUnlimited(raw *big.Int) bool {
	if raw == nil {
		return false
	}
	return raw.Cmp(new(big.Int).Rsh(MaxUint256, 1)) >= 0
}
