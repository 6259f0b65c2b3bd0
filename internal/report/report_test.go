package report

import (
	"math/big"
	"testing"
	"time"

	"github.com/ENiaC-Space/stake7/internal/amount"
	"github.com/ENiaC-Space/stake7/internal/chain"
	"github.com/ENiaC-Space/stake7/internal/refresh"
	"github.com/ENiaC-Space/stake7/internal/yield"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addr = common.HexToAddress("0xafF339de48848d0F8B5704909Ac94e8E8D7E3415")

func testDashboard(t *testing.T) *refresh.Dashboard {
	t.Helper()
	snap := yield.PoolSnapshot{
		AllocPoint:        big.NewInt(100),
		TotalAllocPoint:   big.NewInt(1000),
		EmissionPerBlock:  decimal.NewFromInt(10),
		TotalStakedInPool: decimal.NewFromInt(50_000_000),
	}
	m, err := yield.Compute(snap, nil, yield.DefaultTiming)
	require.NoError(t, err)
	return &refresh.Dashboard{
		UpdatedAt: time.Unix(1_700_000_000, 0),
		Block:     41_000_000,
		Pool: refresh.PoolView{
			State:   &chain.PoolState{PoolID: 0, PoolCount: 3, LPToken: addr, Snapshot: snap},
			Metrics: m,
		},
	}
}

func TestNewPool(t *testing.T) {
	p := NewPool(testDashboard(t), "ENiAC")

	assert.Equal(t, uint64(41_000_000), p.Block)
	assert.Equal(t, int64(1_700_000_000), p.UpdatedAt)
	assert.Equal(t, "100", p.AllocPoint)
	assert.Equal(t, "1000", p.TotalAllocPoint)
	assert.Equal(t, addr.Hex(), p.LPToken)

	d := p.Display
	assert.Equal(t, "21.02%", d.APR)
	assert.Equal(t, "23.39%", d.APY)
	assert.Equal(t, "0.0576%", d.DailyRate)
	assert.Equal(t, "10.00%", d.PoolShare)
	assert.Equal(t, "1.000000 ENiAC", d.RewardPerBlock)
	assert.Equal(t, "10.000000 ENiAC", d.EmissionPerBlock)
	assert.Equal(t, "50,000,000.00 ENiAC", d.TotalStaked)
	assert.Equal(t, "10,512,000.00 ENiAC", d.AnnualRewards)
	assert.Equal(t, "good returns", d.Tier)
}

func walletView(own bool, allowance *big.Int, staked int64) refresh.WalletView {
	st := &chain.WalletState{
		Address:      addr,
		Balance:      decimal.RequireFromString("1234.56789"),
		AllowanceRaw: allowance,
		Allowance:    amount.FromRaw(allowance, 18),
		Position: yield.UserPosition{
			StakedAmount:  decimal.NewFromInt(staked),
			PendingReward: decimal.RequireFromString("0.5"),
		},
	}
	snap := yield.PoolSnapshot{
		AllocPoint:        big.NewInt(100),
		TotalAllocPoint:   big.NewInt(1000),
		EmissionPerBlock:  decimal.NewFromInt(10),
		TotalStakedInPool: decimal.NewFromInt(50_000),
	}
	m, _ := yield.Compute(snap, &st.Position, yield.DefaultTiming)
	return refresh.WalletView{State: st, Projection: m.User, Own: own}
}

func TestNewWalletOwn(t *testing.T) {
	raw := new(big.Int).Mul(big.NewInt(25), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	w := NewWallet(walletView(true, raw, 100), "ENiAC")

	require.NotNil(t, w.Allowance)
	assert.True(t, w.Allowance.Equal(decimal.NewFromInt(25)))
	assert.False(t, w.UnlimitedAllowance)

	d := w.Display
	assert.Equal(t, "0xafF3...3415", d.Address)
	assert.Equal(t, "1234.5679 ENiAC", d.Balance)
	assert.Equal(t, "25.0000 ENiAC", d.Allowance)
	assert.Equal(t, "100.0000 ENiAC", d.Staked)
	assert.Equal(t, "0.5000 ENiAC", d.Pending)
	assert.Equal(t, "0.2000%", d.Share)
	assert.Equal(t, "57.6000 ENiAC", d.DailyReward)
	assert.Equal(t, "403.2000 ENiAC", d.WeeklyReward)
	assert.Equal(t, "1728.0000 ENiAC", d.MonthlyReward)
	assert.Equal(t, "21024.0000 ENiAC", d.YearlyReward)
	assert.Equal(t, "57.6000%", d.DailyRate)
}

func TestNewWalletUnlimitedAllowance(t *testing.T) {
	w := NewWallet(walletView(true, amount.MaxUint256, 100), "ENiAC")
	assert.True(t, w.UnlimitedAllowance)
	assert.Equal(t, "Unlimited", w.Display.Allowance)
}

func TestNewWalletOtherIsViewOnly(t *testing.T) {
	w := NewWallet(walletView(false, amount.MaxUint256, 100), "ENiAC")
	assert.Nil(t, w.Allowance)
	assert.False(t, w.UnlimitedAllowance)
	assert.Equal(t, "View Only", w.Display.Allowance)
}

func TestNewWalletWithoutStake(t *testing.T) {
	w := NewWallet(walletView(false, big.NewInt(0), 0), "")
	assert.Nil(t, w.Projection)
	assert.Equal(t, "0.0000", w.Display.DailyReward)
	assert.Equal(t, "0.0000%", w.Display.Share)
}

func TestStakedTokenSymbols(t *testing.T) {
	usdt := chain.StakedToken{Address: addr, Decimals: 6, Symbol: "USDT"}

	dash := testDashboard(t)
	dash.Pool.State.Staked = usdt
	p := NewPool(dash, "ENiAC")
	assert.Equal(t, "USDT", p.StakedSymbol)
	assert.Equal(t, "50,000,000.00 USDT", p.Display.TotalStaked)
	assert.Equal(t, "10,512,000.00 ENiAC", p.Display.AnnualRewards, "rewards stay in the reward token")

	v := walletView(true, big.NewInt(25_000_000), 100)
	v.State.Staked = usdt
	v.State.Allowance = amount.FromRaw(v.State.AllowanceRaw, 6)
	w := NewWallet(v, "ENiAC")
	assert.Equal(t, "1234.5679 USDT", w.Display.Balance)
	assert.Equal(t, "25.0000 USDT", w.Display.Allowance)
	assert.Equal(t, "100.0000 USDT", w.Display.Staked)
	assert.Equal(t, "0.5000 ENiAC", w.Display.Pending)
	assert.Equal(t, "57.6000 ENiAC", w.Display.DailyReward)
}
