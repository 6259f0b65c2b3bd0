package amount

import (
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Display precisions used by the dashboard.
const (
	BalancePlaces  = 4 // wallet balance, staked, pending, allowance
	PerBlockPlaces = 6 // emission and reward per block
	PercentPlaces  = 2 // APR, APY, pool share
	DailyPlaces    = 4 // daily rate
	TotalPlaces    = 2 // total staked in pool
)

// Format rounds d to a fixed number of places.
func Format(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

// Percent renders percentage points with a trailing "%".
func Percent(d decimal.Decimal, places int32) string {
	return d.StringFixed(places) + "%"
}

// Grouped renders d with comma thousands separators, e.g. "50,000.00".
func Grouped(d decimal.Decimal, places int32) string {
	rounded := d.Round(places)
	whole, frac, hasFrac := strings.Cut(rounded.Abs().StringFixed(places), ".")
	n, _ := new(big.Int).SetString(whole, 10)

	out := humanize.BigComma(n)
	if hasFrac {
		out += "." + frac
	}
	if rounded.IsNegative() {
		out = "-" + out
	}
	return out
}

// WithSymbol appends a token symbol, "12.3456 ENiAC".
func WithSymbol(s, symbol string) string {
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}
