package refresh

import (
	"time"

	"github.com/ENiaC-Space/stake7/internal/chain"
	"github.com/ENiaC-Space/stake7/internal/yield"
	"github.com/ethereum/go-ethereum/common"
)

// PoolView is the pool as of one refresh cycle.
type PoolView struct {
	State   *chain.PoolState `json:"state"`
	Metrics yield.Metrics    `json:"metrics"`
}

// WalletView is a wallet's balances and projected rewards against a pool view.
type WalletView struct {
	State      *chain.WalletState    `json:"state"`
	Projection *yield.UserProjection `json:"projection"`
	// Own is true only for the configured owner wallet; allowance is meaningful
	// to display only then.
	Own bool `json:"own"`
}

// Dashboard is published whole after a fully successful cycle and never
// modified afterwards. Readers may hold on to it without locking.
type Dashboard struct {
	UpdatedAt time.Time                     `json:"updated_at"`
	Block     uint64                        `json:"block"`
	Owner     common.Address                `json:"owner"`
	Pool      PoolView                      `json:"pool"`
	Wallets   map[common.Address]WalletView `json:"wallets"`
}

// Wallet returns the view for addr if it was part of the cycle.
func (d *Dashboard) Wallet(addr common.Address) (WalletView, bool) {
	if d == nil {
		return WalletView{}, false
	}
	v, ok := d.Wallets[addr]
	return v, ok
}

// Progress reports the state of the refresh loop.
type Progress struct {
	Running        bool   `json:"running"`
	Cycles         int64  `json:"cycles"`
	Failures       int64  `json:"failures"`
	LastRunAt      int64  `json:"last_run_at"`
	LastSuccessAt  int64  `json:"last_success_at"`
	LastDurationMs int64  `json:"last_duration_ms"`
	LastError      string `json:"last_error,omitempty"`
	Block          uint64 `json:"block"`
	Wallets        int    `json:"wallets"`
}
