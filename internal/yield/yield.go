// Package yield turns raw staking-pool quantities into APR, APY and per-user
// reward projections.
//
// Everything here is pure arithmetic over decimal values. Callers gather a
// complete PoolSnapshot (and optionally a UserPosition) first and call Compute
// once per refresh; nothing is cached between calls.
package yield

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for negative or inconsistent inputs.
var ErrInvalidInput = errors.New("invalid yield input")

// divPrecision is the number of fractional digits kept by every division.
const divPrecision = 36

var (
	hundred        = decimal.NewFromInt(100)
	daysPerYear    = decimal.NewFromInt(365)
	daysPerWeek    = decimal.NewFromInt(7)
	daysPerMonth   = decimal.NewFromInt(30)
	aprDailyFactor = decimal.NewFromInt(36500) // apr% / 100 / 365
)

// PoolSnapshot is the pool state read from the staking contract in one cycle.
// EmissionPerBlock and TotalStakedInPool are already in human token units.
type PoolSnapshot struct {
	AllocPoint        *big.Int
	TotalAllocPoint   *big.Int
	EmissionPerBlock  decimal.Decimal
	TotalStakedInPool decimal.Decimal
}

// UserPosition is one address's stake in the pool.
type UserPosition struct {
	StakedAmount  decimal.Decimal
	PendingReward decimal.Decimal
}

// ChainTiming holds block counts derived from the chain's average block interval.
type ChainTiming struct {
	BlocksPerDay  int64
	BlocksPerYear int64
}

// DefaultTiming assumes 3-second blocks.
var DefaultTiming = ChainTiming{
	BlocksPerDay:  28_800,
	BlocksPerYear: 10_512_000,
}

// Metrics is the derived, read-only result of Compute. All percentage fields
// are in percentage points (21.024 means 21.024%).
type Metrics struct {
	PoolSharePct   decimal.Decimal `json:"pool_share_pct"`
	RewardPerBlock decimal.Decimal `json:"reward_per_block"`
	AnnualRewards  decimal.Decimal `json:"annual_rewards"`
	APR            decimal.Decimal `json:"apr"`
	APY            decimal.Decimal `json:"apy"`
	DailyRate      decimal.Decimal `json:"daily_rate"`
	Tier           Tier            `json:"tier"`
	User           *UserProjection `json:"user,omitempty"`
}

// UserProjection is present only when a staked position was supplied and the
// pool has a non-zero total stake.
type UserProjection struct {
	Share         decimal.Decimal `json:"share"`
	DailyReward   decimal.Decimal `json:"daily_reward"`
	WeeklyReward  decimal.Decimal `json:"weekly_reward"`
	MonthlyReward decimal.Decimal `json:"monthly_reward"`
	YearlyReward  decimal.Decimal `json:"yearly_reward"`
	DailyRatePct  decimal.Decimal `json:"daily_rate_pct"`
}

// Compute derives Metrics from a pool snapshot and an optional user position.
func Compute(pool PoolSnapshot, user *UserPosition, timing ChainTiming) (Metrics, error) {
	if err := validate(pool, user, timing); err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		PoolSharePct:   decimal.Zero,
		RewardPerBlock: decimal.Zero,
		AnnualRewards:  decimal.Zero,
		APR:            decimal.Zero,
		APY:            decimal.Zero,
		DailyRate:      decimal.Zero,
	}

	if pool.TotalAllocPoint.Sign() > 0 {
		alloc := decimal.NewFromBigInt(pool.AllocPoint, 0)
		total := decimal.NewFromBigInt(pool.TotalAllocPoint, 0)
		share := alloc.DivRound(total, divPrecision)
		m.PoolSharePct = share.Mul(hundred)
		m.RewardPerBlock = pool.EmissionPerBlock.Mul(share)
	}

	staked := pool.TotalStakedInPool
	if staked.Sign() > 0 && m.RewardPerBlock.Sign() > 0 {
		m.AnnualRewards = m.RewardPerBlock.Mul(decimal.NewFromInt(timing.BlocksPerYear))
		m.APR = m.AnnualRewards.DivRound(staked, divPrecision).Mul(hundred)
		m.DailyRate = m.APR.DivRound(daysPerYear, divPrecision)
		m.APY = compoundDaily(m.APR)
	}
	m.Tier = Classify(m.APR)

	if user != nil && user.StakedAmount.Sign() > 0 && staked.Sign() > 0 {
		m.User = project(m.RewardPerBlock, user.StakedAmount, staked, timing)
	}
	return m, nil
}

func project(rewardPerBlock, userStaked, poolStaked decimal.Decimal, timing ChainTiming) *UserProjection {
	share := userStaked.DivRound(poolStaked, divPrecision)
	daily := rewardPerBlock.Mul(decimal.NewFromInt(timing.BlocksPerDay)).Mul(share)
	return &UserProjection{
		Share:         share,
		DailyReward:   daily,
		WeeklyReward:  daily.Mul(daysPerWeek),
		MonthlyReward: daily.Mul(daysPerMonth),
		YearlyReward:  daily.Mul(daysPerYear),
		DailyRatePct:  daily.DivRound(userStaked, divPrecision).Mul(hundred),
	}
}

// compoundDaily returns (pow(1 + apr/100/365, 365) - 1) * 100.
func compoundDaily(apr decimal.Decimal) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(apr.DivRound(aprDailyFactor, divPrecision))
	return powInt(base, 365).Sub(decimal.NewFromInt(1)).Mul(hundred)
}

// powInt raises base to a non-negative integer power by repeated squaring,
// rounding every intermediate product to divPrecision fractional digits.
func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(divPrecision)
		}
		base = base.Mul(base).Round(divPrecision)
		n >>= 1
	}
	return result
}

func validate(pool PoolSnapshot, user *UserPosition, timing ChainTiming) error {
	if timing.BlocksPerDay <= 0 || timing.BlocksPerYear <= 0 {
		return fmt.Errorf("%w: block timing must be positive (day=%d, year=%d)",
			ErrInvalidInput, timing.BlocksPerDay, timing.BlocksPerYear)
	}
	if pool.AllocPoint == nil || pool.TotalAllocPoint == nil {
		return fmt.Errorf("%w: allocation points missing", ErrInvalidInput)
	}
	if pool.AllocPoint.Sign() < 0 || pool.TotalAllocPoint.Sign() < 0 {
		return fmt.Errorf("%w: negative allocation points", ErrInvalidInput)
	}
	// An empty allocation table is reported as zero share, not as an error.
	if pool.TotalAllocPoint.Sign() > 0 && pool.AllocPoint.Cmp(pool.TotalAllocPoint) > 0 {
		return fmt.Errorf("%w: alloc point %s exceeds total %s",
			ErrInvalidInput, pool.AllocPoint, pool.TotalAllocPoint)
	}
	if pool.EmissionPerBlock.IsNegative() {
		return fmt.Errorf("%w: negative emission per block", ErrInvalidInput)
	}
	if pool.TotalStakedInPool.IsNegative() {
		return fmt.Errorf("%w: negative total staked", ErrInvalidInput)
	}
	if user != nil {
		if user.StakedAmount.IsNegative() {
			return fmt.Errorf("%w: negative user stake", ErrInvalidInput)
		}
		if user.PendingReward.IsNegative() {
			return fmt.Errorf("%w: negative pending reward", ErrInvalidInput)
		}
	}
	return nil
}
