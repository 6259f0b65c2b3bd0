package yield

import "github.com/shopspring/decimal"

// Tier is a descriptive label for an APR.
type Tier string

const (
	TierNoData        Tier = "no data"
	TierVeryHighYield Tier = "very high yield"
	TierHighYield     Tier = "high yield"
	TierGoodReturns   Tier = "good returns"
	TierModerate      Tier = "moderate returns"
	TierLowReturns    Tier = "low returns"
)

var tierFloors = []struct {
	floor decimal.Decimal
	tier  Tier
}{
	{decimal.NewFromInt(100), TierVeryHighYield},
	{decimal.NewFromInt(50), TierHighYield},
	{decimal.NewFromInt(20), TierGoodReturns},
	{decimal.NewFromInt(5), TierModerate},
}

// Classify maps an APR (percentage points) to its tier. Floors are exclusive:
// exactly 50 is "good returns", exactly 100 is "high yield".
func Classify(apr decimal.Decimal) Tier {
	if apr.IsZero() {
		return TierNoData
	}
	for _, f := range tierFloors {
		if apr.GreaterThan(f.floor) {
			return f.tier
		}
	}
	return TierLowReturns
}
