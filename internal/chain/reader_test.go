package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ENiaC-Space/stake7/internal/amount"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddr = common.HexToAddress("0xafF339de48848d0F8B5704909Ac94e8E8D7E3415")
	chefAddr  = common.HexToAddress("0x564DF71B75855d63c86a267206Cd0c9e35c92789")
	userAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherLP   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type handler func(args []interface{}) ([]interface{}, error)

// fakeChain answers eth_call by decoding the selector against our ABIs and
// packing canned outputs.
type fakeChain struct {
	block    uint64
	handlers map[common.Address]map[string]handler
}

func (f *fakeChain) CodeAt(ctx context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed := ERC20ABI
	if *msg.To == chefAddr {
		parsed = MasterChefABI
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	h, ok := f.handlers[*msg.To][method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	return f.block, nil
}

func fixed(vals ...interface{}) handler {
	return func([]interface{}) ([]interface{}, error) { return vals, nil }
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		block: 41_000_000,
		handlers: map[common.Address]map[string]handler{
			tokenAddr: {
				"decimals": fixed(uint8(18)),
				"balanceOf": func(args []interface{}) ([]interface{}, error) {
					switch args[0].(common.Address) {
					case chefAddr:
						return []interface{}{e18(50_000_000)}, nil
					case userAddr:
						return []interface{}{e18(1234)}, nil
					}
					return []interface{}{big.NewInt(0)}, nil
				},
				"allowance": fixed(amount.MaxUint256),
			},
			chefAddr: {
				"poolLength":      fixed(big.NewInt(2)),
				"poolInfo":        fixed(tokenAddr, big.NewInt(100), big.NewInt(40_999_990), big.NewInt(777)),
				"totalAllocPoint": fixed(big.NewInt(1000)),
				"ANTPerBlock":     fixed(e18(10)),
				"userInfo":        fixed(e18(1000), big.NewInt(5)),
				"pendingANT":      fixed(new(big.Int).Div(e18(3), big.NewInt(2))),
			},
		},
	}
}

func newTestReader(t *testing.T, fc *fakeChain, decimals uint8) *Reader {
	t.Helper()
	s, err := NewSession(context.Background(), fc, SessionConfig{
		Token:      tokenAddr,
		MasterChef: chefAddr,
		PoolID:     0,
		Decimals:   decimals,
		Symbol:     "ENiAC",
	})
	require.NoError(t, err)
	return NewReader(s, time.Second)
}

func TestNewSessionReadsDecimals(t *testing.T) {
	fc := newFakeChain()
	fc.handlers[tokenAddr]["decimals"] = fixed(uint8(9))

	r := newTestReader(t, fc, 0)
	assert.Equal(t, uint8(9), r.Session().Decimals)

	r = newTestReader(t, fc, 18)
	assert.Equal(t, uint8(18), r.Session().Decimals, "configured decimals win")
}

func TestNewSessionDecimalsFailure(t *testing.T) {
	fc := newFakeChain()
	delete(fc.handlers[tokenAddr], "decimals")

	_, err := NewSession(context.Background(), fc, SessionConfig{Token: tokenAddr, MasterChef: chefAddr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimals")
}

func TestReaderPool(t *testing.T) {
	r := newTestReader(t, newFakeChain(), 18)

	st, err := r.Pool(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), st.PoolCount)
	assert.Equal(t, tokenAddr, st.LPToken)
	assert.Equal(t, uint64(40_999_990), st.LastRewardBlock)
	assert.Equal(t, uint64(41_000_000), st.Block)
	assert.Equal(t, 0, st.AccPerShare.Cmp(big.NewInt(777)))
	assert.Equal(t, StakedToken{Address: tokenAddr, Decimals: 18, Symbol: "ENiAC"}, st.Staked)

	snap := st.Snapshot
	assert.Equal(t, int64(100), snap.AllocPoint.Int64())
	assert.Equal(t, int64(1000), snap.TotalAllocPoint.Int64())
	assert.True(t, snap.EmissionPerBlock.Equal(decimal.NewFromInt(10)), snap.EmissionPerBlock.String())
	assert.True(t, snap.TotalStakedInPool.Equal(decimal.NewFromInt(50_000_000)), snap.TotalStakedInPool.String())
}

func TestReaderPoolDifferentStakedToken(t *testing.T) {
	fc := newFakeChain()
	fc.handlers[chefAddr]["poolInfo"] = fixed(otherLP, big.NewInt(100), big.NewInt(1), big.NewInt(0))
	fc.handlers[otherLP] = map[string]handler{
		"decimals":  fixed(uint8(6)),
		"balanceOf": fixed(big.NewInt(2_500_000)),
	}
	r := newTestReader(t, fc, 18)

	st, err := r.Pool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StakedToken{Address: otherLP, Decimals: 6, Symbol: "LP"}, st.Staked, "symbol() missing falls back")
	assert.True(t, st.Snapshot.TotalStakedInPool.Equal(decimal.RequireFromString("2.5")))
}

// sixDecimalPool stakes a 6-decimal token for an 18-decimal reward: 50,000 in
// the pool, 100 staked by the user.
func sixDecimalPool() *fakeChain {
	e6 := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000)) }
	fc := newFakeChain()
	fc.handlers[chefAddr]["poolInfo"] = fixed(otherLP, big.NewInt(100), big.NewInt(1), big.NewInt(0))
	fc.handlers[chefAddr]["userInfo"] = fixed(e6(100), big.NewInt(0))
	fc.handlers[otherLP] = map[string]handler{
		"decimals": fixed(uint8(6)),
		"symbol":   fixed("USDT"),
		"balanceOf": func(args []interface{}) ([]interface{}, error) {
			switch args[0].(common.Address) {
			case chefAddr:
				return []interface{}{e6(50_000)}, nil
			case userAddr:
				return []interface{}{e6(40)}, nil
			}
			return []interface{}{big.NewInt(0)}, nil
		},
		"allowance": fixed(e6(25)),
	}
	return fc
}

func TestReaderWalletUsesStakedTokenDecimals(t *testing.T) {
	for _, poolFirst := range []bool{true, false} {
		r := newTestReader(t, sixDecimalPool(), 18)

		var pool *PoolState
		if poolFirst {
			var err error
			pool, err = r.Pool(context.Background())
			require.NoError(t, err)
		}
		w, err := r.Wallet(context.Background(), userAddr)
		require.NoError(t, err)

		assert.Equal(t, StakedToken{Address: otherLP, Decimals: 6, Symbol: "USDT"}, w.Staked)
		assert.True(t, w.Position.StakedAmount.Equal(decimal.NewFromInt(100)), w.Position.StakedAmount.String())
		assert.True(t, w.Balance.Equal(decimal.NewFromInt(40)), "balance is read from the staked token")
		assert.True(t, w.Allowance.Equal(decimal.NewFromInt(25)), "allowance is read from the staked token")
		assert.True(t, w.Position.PendingReward.Equal(decimal.RequireFromString("1.5")), "pending stays in reward decimals")

		if pool == nil {
			pool, err = r.Pool(context.Background())
			require.NoError(t, err)
		}
		share := w.Position.StakedAmount.Div(pool.Snapshot.TotalStakedInPool)
		assert.True(t, share.Equal(decimal.RequireFromString("0.002")), "share = %s", share)
	}
}

func TestReaderPoolUnknownPool(t *testing.T) {
	fc := newFakeChain()
	s, err := NewSession(context.Background(), fc, SessionConfig{
		Token: tokenAddr, MasterChef: chefAddr, PoolID: 2, Decimals: 18,
	})
	require.NoError(t, err)

	_, err = NewReader(s, 0).Pool(context.Background())
	assert.ErrorIs(t, err, ErrUnknownPool)
}

func TestReaderPoolCallFailure(t *testing.T) {
	fc := newFakeChain()
	delete(fc.handlers[chefAddr], "ANTPerBlock")
	r := newTestReader(t, fc, 18)

	_, err := r.Pool(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTPerBlock")
}

func TestReaderWallet(t *testing.T) {
	r := newTestReader(t, newFakeChain(), 18)

	w, err := r.Wallet(context.Background(), userAddr)
	require.NoError(t, err)

	assert.Equal(t, userAddr, w.Address)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(1234)))
	assert.True(t, w.UnlimitedAllowance())
	assert.Equal(t, int64(5), w.RewardDebt.Int64())
	assert.True(t, w.Position.StakedAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, w.Position.PendingReward.Equal(decimal.RequireFromString("1.5")))
}

func TestReaderWalletLimitedAllowance(t *testing.T) {
	fc := newFakeChain()
	fc.handlers[tokenAddr]["allowance"] = fixed(e18(250))
	r := newTestReader(t, fc, 18)

	w, err := r.Wallet(context.Background(), userAddr)
	require.NoError(t, err)
	assert.False(t, w.UnlimitedAllowance())
	assert.True(t, w.Allowance.Equal(decimal.NewFromInt(250)))
}

func TestReaderWalletCallFailure(t *testing.T) {
	fc := newFakeChain()
	fc.handlers[chefAddr]["pendingANT"] = func([]interface{}) ([]interface{}, error) {
		return nil, errors.New("header not found")
	}
	r := newTestReader(t, fc, 18)

	_, err := r.Wallet(context.Background(), userAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pendingANT")
}
