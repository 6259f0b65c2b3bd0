package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ENiaC-Space/stake7/internal/amount"
	"github.com/ENiaC-Space/stake7/internal/yield"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownPool is returned when the configured pool id is not below poolLength().
var ErrUnknownPool = errors.New("pool id out of range")

const defaultCallTimeout = 10 * time.Second

// PoolState is one consistent read of the configured pool.
type PoolState struct {
	PoolID          uint64         `json:"pool_id"`
	PoolCount       uint64         `json:"pool_count"`
	LPToken         common.Address `json:"lp_token"`
	LastRewardBlock uint64         `json:"last_reward_block"`
	AccPerShare     *big.Int       `json:"acc_per_share"`
	Block           uint64         `json:"block"`
	EmissionRaw     *big.Int       `json:"emission_raw"`
	TotalStakedRaw  *big.Int       `json:"total_staked_raw"`
	Staked          StakedToken    `json:"staked_token"`

	Snapshot yield.PoolSnapshot `json:"-"`
}

// WalletState is one wallet's balances and position in the configured pool.
// Balance, allowance and stake are in the pool's staked token; the pending
// reward is in the reward token.
type WalletState struct {
	Address      common.Address  `json:"address"`
	Staked       StakedToken     `json:"staked_token"`
	BalanceRaw   *big.Int        `json:"balance_raw"`
	Balance      decimal.Decimal `json:"balance"`
	AllowanceRaw *big.Int        `json:"allowance_raw"`
	Allowance    decimal.Decimal `json:"allowance"`
	StakedRaw    *big.Int        `json:"staked_raw"`
	RewardDebt   *big.Int        `json:"reward_debt"`

	Position yield.UserPosition `json:"-"`
}

// UnlimitedAllowance reports whether the MasterChef may spend any amount.
func (w WalletState) UnlimitedAllowance() bool {
	return amount.IsUnlimited(w.AllowanceRaw)
}

// Reader performs the read-only contract calls for a session.
type Reader struct {
	s       *Session
	timeout time.Duration
}

func NewReader(s *Session, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Reader{s: s, timeout: timeout}
}

func (r *Reader) Session() *Session { return r.s }

// Pool reads the pool's allocation, the emission rate and the total staked.
// Independent calls run concurrently; the first failure cancels the rest.
func (r *Reader) Pool(ctx context.Context) (*PoolState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	s := r.s
	count, err := callBig(ctx, s.chef, "poolLength")
	if err != nil {
		return nil, err
	}
	pid := new(big.Int).SetUint64(s.PoolID)
	if pid.Cmp(count) >= 0 {
		return nil, fmt.Errorf("%w: pool %d, contract has %s", ErrUnknownPool, s.PoolID, count)
	}

	st := &PoolState{PoolID: s.PoolID, PoolCount: count.Uint64()}
	var info []interface{}
	var totalAlloc *big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = call(gctx, s.chef, "poolInfo", pid)
		return err
	})
	g.Go(func() error {
		var err error
		totalAlloc, err = callBig(gctx, s.chef, "totalAllocPoint")
		return err
	})
	g.Go(func() error {
		var err error
		st.EmissionRaw, err = callBig(gctx, s.chef, "ANTPerBlock")
		return err
	})
	g.Go(func() error {
		var err error
		st.Block, err = s.backend.BlockNumber(gctx)
		if err != nil {
			return fmt.Errorf("block number: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(info) < 4 {
		return nil, fmt.Errorf("%w: poolInfo returned %d values", ErrUnexpectedOutput, len(info))
	}
	lp, err := lpAt(info)
	if err != nil {
		return nil, err
	}
	alloc, err := bigAt(info, 1, "poolInfo")
	if err != nil {
		return nil, err
	}
	lastReward, err := bigAt(info, 2, "poolInfo")
	if err != nil {
		return nil, err
	}
	st.AccPerShare, err = bigAt(info, 3, "poolInfo")
	if err != nil {
		return nil, err
	}
	st.LPToken = lp
	st.LastRewardBlock = lastReward.Uint64()

	// Total staked is whatever the MasterChef holds of the pool's token.
	if st.Staked, err = s.resolveStaked(ctx, lp); err != nil {
		return nil, err
	}
	st.TotalStakedRaw, err = callBig(ctx, s.erc20(lp), "balanceOf", s.MasterChef)
	if err != nil {
		return nil, err
	}

	st.Snapshot = yield.PoolSnapshot{
		AllocPoint:        alloc,
		TotalAllocPoint:   totalAlloc,
		EmissionPerBlock:  amount.FromRaw(st.EmissionRaw, s.Decimals),
		TotalStakedInPool: amount.FromRaw(st.TotalStakedRaw, st.Staked.Decimals),
	}
	return st, nil
}

// Wallet reads a wallet's balance of the staked token, its allowance toward
// the MasterChef, the staked amount and the pending reward.
func (r *Reader) Wallet(ctx context.Context, addr common.Address) (*WalletState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	s := r.s
	pid := new(big.Int).SetUint64(s.PoolID)
	tok, err := r.stakedToken(ctx, pid)
	if err != nil {
		return nil, err
	}
	deposit := s.erc20(tok.Address)
	w := &WalletState{Address: addr, Staked: tok}
	var pending *big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		w.BalanceRaw, err = callBig(gctx, deposit, "balanceOf", addr)
		return err
	})
	g.Go(func() error {
		var err error
		w.AllowanceRaw, err = callBig(gctx, deposit, "allowance", addr, s.MasterChef)
		return err
	})
	g.Go(func() error {
		out, err := call(gctx, s.chef, "userInfo", pid, addr)
		if err != nil {
			return err
		}
		if w.StakedRaw, err = bigAt(out, 0, "userInfo"); err != nil {
			return err
		}
		w.RewardDebt, err = bigAt(out, 1, "userInfo")
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = callBig(gctx, s.chef, "pendingANT", pid, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w.Balance = amount.FromRaw(w.BalanceRaw, tok.Decimals)
	w.Allowance = amount.FromRaw(w.AllowanceRaw, tok.Decimals)
	w.Position = yield.UserPosition{
		StakedAmount:  amount.FromRaw(w.StakedRaw, tok.Decimals),
		PendingReward: amount.FromRaw(pending, s.Decimals),
	}
	return w, nil
}

// stakedToken returns the pool's deposit token, reading poolInfo when no
// Pool read has resolved it yet.
func (r *Reader) stakedToken(ctx context.Context, pid *big.Int) (StakedToken, error) {
	if tok, ok := r.s.cachedStaked(); ok {
		return tok, nil
	}
	info, err := call(ctx, r.s.chef, "poolInfo", pid)
	if err != nil {
		return StakedToken{}, err
	}
	lp, err := lpAt(info)
	if err != nil {
		return StakedToken{}, err
	}
	return r.s.resolveStaked(ctx, lp)
}

func lpAt(info []interface{}) (common.Address, error) {
	if len(info) == 0 {
		return common.Address{}, fmt.Errorf("%w: poolInfo returned nothing", ErrUnexpectedOutput)
	}
	lp, ok := info[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: poolInfo lpToken is %T", ErrUnexpectedOutput, info[0])
	}
	return lp, nil
}
