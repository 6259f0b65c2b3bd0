package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ErrUnexpectedOutput is returned when a contract answers with values of the wrong shape.
var ErrUnexpectedOutput = errors.New("unexpected contract output")

// SessionConfig identifies the contracts and the pool to read.
// The pool id is always configured explicitly; it is never probed for.
type SessionConfig struct {
	Token      common.Address
	MasterChef common.Address
	PoolID     uint64
	Decimals   uint8 // 0 = ask the token
	Symbol     string
}

// fallbackStakedSymbol labels a staked token whose symbol() cannot be read.
// symbol() is optional in ERC-20 and some older tokens return bytes32.
const fallbackStakedSymbol = "LP"

// StakedToken is the token a pool accepts as deposits. It is often an LP
// token and may use different decimals than the reward token.
type StakedToken struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
}

// Session carries the contract handles for one token/MasterChef pair. It
// replaces any process-wide contract state: whoever reads the chain holds one.
type Session struct {
	Token      common.Address
	MasterChef common.Address
	PoolID     uint64
	Decimals   uint8
	Symbol     string

	backend Backend
	token   *bind.BoundContract
	chef    *bind.BoundContract

	mu     sync.Mutex
	staked *StakedToken
}

// NewSession binds the contracts. When cfg.Decimals is zero it reads decimals()
// from the token once.
func NewSession(ctx context.Context, backend Backend, cfg SessionConfig) (*Session, error) {
	s := &Session{
		Token:      cfg.Token,
		MasterChef: cfg.MasterChef,
		PoolID:     cfg.PoolID,
		Decimals:   cfg.Decimals,
		Symbol:     cfg.Symbol,
		backend:    backend,
		token:      bind.NewBoundContract(cfg.Token, ERC20ABI, backend, nil, nil),
		chef:       bind.NewBoundContract(cfg.MasterChef, MasterChefABI, backend, nil, nil),
	}
	if s.Decimals == 0 {
		d, err := readDecimals(ctx, s.token)
		if err != nil {
			return nil, fmt.Errorf("token decimals: %w", err)
		}
		s.Decimals = d
	}
	return s, nil
}

// erc20 binds an arbitrary ERC-20 (the pool's staked token may differ from the reward token).
func (s *Session) erc20(addr common.Address) *bind.BoundContract {
	if addr == s.Token {
		return s.token
	}
	return bind.NewBoundContract(addr, ERC20ABI, s.backend, nil, nil)
}

// cachedStaked returns the pool's deposit token once it has been resolved.
func (s *Session) cachedStaked() (StakedToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staked == nil {
		return StakedToken{}, false
	}
	return *s.staked, true
}

// resolveStaked describes the deposit token lp and remembers it. A MasterChef
// pool's lpToken is fixed when the pool is added, so one lookup is enough.
func (s *Session) resolveStaked(ctx context.Context, lp common.Address) (StakedToken, error) {
	if tok, ok := s.cachedStaked(); ok && tok.Address == lp {
		return tok, nil
	}
	tok := StakedToken{Address: lp, Decimals: s.Decimals, Symbol: s.Symbol}
	if lp != s.Token {
		c := s.erc20(lp)
		d, err := readDecimals(ctx, c)
		if err != nil {
			return StakedToken{}, fmt.Errorf("staked token decimals: %w", err)
		}
		tok.Decimals = d
		tok.Symbol = readSymbol(ctx, c)
	}

	s.mu.Lock()
	s.staked = &tok
	s.mu.Unlock()
	return tok, nil
}

func call(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func callBig(ctx context.Context, c *bind.BoundContract, method string, args ...interface{}) (*big.Int, error) {
	out, err := call(ctx, c, method, args...)
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0, method)
}

func bigAt(out []interface{}, i int, method string) (*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrUnexpectedOutput, method, len(out))
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s[%d] is %T", ErrUnexpectedOutput, method, i, out[i])
	}
	return v, nil
}

func readDecimals(ctx context.Context, c *bind.BoundContract) (uint8, error) {
	out, err := call(ctx, c, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("%w: decimals returned nothing", ErrUnexpectedOutput)
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals is %T", ErrUnexpectedOutput, out[0])
	}
	return d, nil
}

func readSymbol(ctx context.Context, c *bind.BoundContract) string {
	out, err := call(ctx, c, "symbol")
	if err != nil || len(out) == 0 {
		return fallbackStakedSymbol
	}
	sym, ok := out[0].(string)
	if !ok || sym == "" {
		return fallbackStakedSymbol
	}
	return sym
}
