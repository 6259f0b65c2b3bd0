// Package preflight answers whether a stake, unstake or claim would get past
// the wallet checks a dapp runs before asking for a signature. Nothing here
// signs or sends a transaction; it only compares an amount against a wallet's
// last read state.
package preflight

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ENiaC-Space/stake7/internal/amount"
	"github.com/ENiaC-Space/stake7/internal/refresh"
	"github.com/shopspring/decimal"
)

type Action string

const (
	Stake   Action = "stake"
	Unstake Action = "unstake"
	Claim   Action = "claim"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	// ErrNotPositive is returned for a zero stake or unstake amount.
	ErrNotPositive = errors.New("amount must be greater than zero")
)

// ParseAction accepts "stake", "unstake" or "claim" in any case.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case Stake, Unstake, Claim:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q (want stake, unstake or claim)", ErrUnknownAction, s)
}

// Result is the outcome of a check. A failed check is not an error: OK is
// false and Reason says what the wallet is short of.
type Result struct {
	Action    Action          `json:"action"`
	Address   string          `json:"address"`
	Amount    decimal.Decimal `json:"amount"`
	AmountRaw string          `json:"amount_raw"`
	Symbol    string          `json:"symbol"`
	OK        bool            `json:"ok"`
	Reason    string          `json:"reason,omitempty"`
}

// Check validates amountText for action against the wallet view. Claim takes
// no amount; it reports the pending reward instead. Errors are returned only
// for malformed input.
func Check(action Action, amountText string, v refresh.WalletView, rewardSymbol string) (Result, error) {
	st := v.State
	tok := st.Staked
	r := Result{Action: action, Address: st.Address.Hex(), Symbol: tok.Symbol}
	if r.Symbol == "" {
		r.Symbol = rewardSymbol
	}

	var raw *big.Int
	switch action {
	case Stake, Unstake:
		d, err := amount.Parse(amountText, tok.Decimals)
		if err != nil {
			return Result{}, err
		}
		if !d.IsPositive() {
			return Result{}, ErrNotPositive
		}
		if raw, err = amount.ToRaw(d, tok.Decimals); err != nil {
			return Result{}, err
		}
		r.Amount, r.AmountRaw = d, raw.String()
	case Claim:
		r.Amount, r.Symbol = st.Position.PendingReward, rewardSymbol
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if !v.Own {
		r.Reason = fmt.Sprintf("cannot %s for other wallets", action)
		return r, nil
	}

	show := func(d decimal.Decimal) string {
		return amount.WithSymbol(amount.Format(d, amount.BalancePlaces), r.Symbol)
	}
	switch {
	case action == Stake && exceeds(raw, st.BalanceRaw):
		r.Reason = fmt.Sprintf("insufficient balance: you have %s", show(st.Balance))
	case action == Stake && exceeds(raw, st.AllowanceRaw):
		r.Reason = "insufficient allowance: approve the MasterChef first"
	case action == Unstake && exceeds(raw, st.StakedRaw):
		r.Reason = fmt.Sprintf("insufficient staked amount: you have %s staked", show(st.Position.StakedAmount))
	default:
		r.OK = true
	}
	return r, nil
}

// exceeds reports want > have, treating a missing value as zero.
func exceeds(want, have *big.Int) bool {
	if have == nil {
		return want.Sign() > 0
	}
	return want.Cmp(have) > 0
}
