// Package report shapes refresh results for the API and MCP surfaces: exact
// decimal values alongside display strings rounded the way the dashboard shows them.
package report

import (
	"math/big"

	"github.com/ENiaC-Space/stake7/internal/amount"
	"github.com/ENiaC-Space/stake7/internal/chain"
	"github.com/ENiaC-Space/stake7/internal/refresh"
	"github.com/ENiaC-Space/stake7/internal/wallet"
	"github.com/ENiaC-Space/stake7/internal/yield"
	"github.com/shopspring/decimal"
)

const (
	viewOnly  = "View Only"
	unlimited = "Unlimited"
)

type PoolDisplay struct {
	APR              string `json:"apr"`
	APY              string `json:"apy"`
	DailyRate        string `json:"daily_rate"`
	PoolShare        string `json:"pool_share"`
	RewardPerBlock   string `json:"reward_per_block"`
	EmissionPerBlock string `json:"emission_per_block"`
	AnnualRewards    string `json:"annual_rewards"`
	TotalStaked      string `json:"total_staked"`
	Tier             string `json:"tier"`
}

type Pool struct {
	Block            uint64          `json:"block"`
	UpdatedAt        int64           `json:"updated_at"`
	PoolID           uint64          `json:"pool_id"`
	PoolCount        uint64          `json:"pool_count"`
	LPToken          string          `json:"lp_token"`
	StakedSymbol     string          `json:"staked_symbol"`
	AllocPoint       string          `json:"alloc_point"`
	TotalAllocPoint  string          `json:"total_alloc_point"`
	EmissionPerBlock decimal.Decimal `json:"emission_per_block"`
	TotalStaked      decimal.Decimal `json:"total_staked"`
	Metrics          yield.Metrics   `json:"metrics"`
	Display          PoolDisplay     `json:"display"`
}

// NewPool reports the pool section of a dashboard. symbol labels reward-token
// amounts; total staked carries the staked token's own symbol.
func NewPool(d *refresh.Dashboard, symbol string) Pool {
	st := d.Pool.State
	m := d.Pool.Metrics
	snap := st.Snapshot
	staked := stakedSymbol(st.Staked, symbol)
	return Pool{
		Block:            d.Block,
		UpdatedAt:        d.UpdatedAt.Unix(),
		PoolID:           st.PoolID,
		PoolCount:        st.PoolCount,
		LPToken:          st.LPToken.Hex(),
		StakedSymbol:     staked,
		AllocPoint:       bigString(snap.AllocPoint),
		TotalAllocPoint:  bigString(snap.TotalAllocPoint),
		EmissionPerBlock: snap.EmissionPerBlock,
		TotalStaked:      snap.TotalStakedInPool,
		Metrics:          m,
		Display: PoolDisplay{
			APR:              amount.Percent(m.APR, amount.PercentPlaces),
			APY:              amount.Percent(m.APY, amount.PercentPlaces),
			DailyRate:        amount.Percent(m.DailyRate, amount.DailyPlaces),
			PoolShare:        amount.Percent(m.PoolSharePct, amount.PercentPlaces),
			RewardPerBlock:   amount.WithSymbol(amount.Format(m.RewardPerBlock, amount.PerBlockPlaces), symbol),
			EmissionPerBlock: amount.WithSymbol(amount.Format(snap.EmissionPerBlock, amount.PerBlockPlaces), symbol),
			AnnualRewards:    amount.WithSymbol(amount.Grouped(m.AnnualRewards, amount.TotalPlaces), symbol),
			TotalStaked:      amount.WithSymbol(amount.Grouped(snap.TotalStakedInPool, amount.TotalPlaces), staked),
			Tier:             string(m.Tier),
		},
	}
}

type WalletDisplay struct {
	Address       string `json:"address"`
	Balance       string `json:"balance"`
	Allowance     string `json:"allowance"`
	Staked        string `json:"staked"`
	Pending       string `json:"pending"`
	Share         string `json:"share"`
	DailyReward   string `json:"daily_reward"`
	WeeklyReward  string `json:"weekly_reward"`
	MonthlyReward string `json:"monthly_reward"`
	YearlyReward  string `json:"yearly_reward"`
	DailyRate     string `json:"daily_rate"`
}

type Wallet struct {
	Address            string                `json:"address"`
	Own                bool                  `json:"own"`
	Watched            bool                  `json:"watched"`
	StakedSymbol       string                `json:"staked_symbol"`
	Balance            decimal.Decimal       `json:"balance"`
	Allowance          *decimal.Decimal      `json:"allowance,omitempty"`
	UnlimitedAllowance bool                  `json:"unlimited_allowance,omitempty"`
	Staked             decimal.Decimal       `json:"staked"`
	Pending            decimal.Decimal       `json:"pending"`
	Projection         *yield.UserProjection `json:"projection,omitempty"`
	Display            WalletDisplay         `json:"display"`
}

// NewWallet reports a wallet view. Allowance is only reported for the owner's
// own wallet; for any other address it displays as "View Only". Balance,
// allowance and stake are in the staked token, rewards in symbol.
func NewWallet(v refresh.WalletView, symbol string) Wallet {
	st := v.State
	w := Wallet{
		Address:      st.Address.Hex(),
		Own:          v.Own,
		StakedSymbol: stakedSymbol(st.Staked, symbol),
		Balance:      st.Balance,
		Staked:       st.Position.StakedAmount,
		Pending:      st.Position.PendingReward,
		Projection:   v.Projection,
	}

	in := func(sym string) func(decimal.Decimal) string {
		return func(d decimal.Decimal) string {
			return amount.WithSymbol(amount.Format(d, amount.BalancePlaces), sym)
		}
	}
	deposit, bal := in(w.StakedSymbol), in(symbol)
	w.Display = WalletDisplay{
		Address:   wallet.Short(st.Address),
		Balance:   deposit(st.Balance),
		Allowance: viewOnly,
		Staked:    deposit(w.Staked),
		Pending:   bal(w.Pending),
	}
	if v.Own {
		allowance := st.Allowance
		w.Allowance = &allowance
		w.UnlimitedAllowance = st.UnlimitedAllowance()
		w.Display.Allowance = deposit(allowance)
		if w.UnlimitedAllowance {
			w.Display.Allowance = unlimited
		}
	}

	p := v.Projection
	if p == nil {
		p = &yield.UserProjection{}
	}
	w.Display.Share = amount.Percent(p.Share.Mul(decimal.NewFromInt(100)), amount.DailyPlaces)
	w.Display.DailyReward = bal(p.DailyReward)
	w.Display.WeeklyReward = bal(p.WeeklyReward)
	w.Display.MonthlyReward = bal(p.MonthlyReward)
	w.Display.YearlyReward = bal(p.YearlyReward)
	w.Display.DailyRate = amount.Percent(p.DailyRatePct, amount.DailyPlaces)
	return w
}

// stakedSymbol labels staked-token amounts. States read before the staked
// token was resolved fall back to the reward symbol.
func stakedSymbol(tok chain.StakedToken, reward string) string {
	if tok.Symbol == "" {
		return reward
	}
	return tok.Symbol
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
