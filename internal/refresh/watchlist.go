package refresh

import (
	"github.com/ENiaC-Space/stake7/internal/db"
	"github.com/ENiaC-Space/stake7/internal/logging"
	"github.com/ENiaC-Space/stake7/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Watchlist supplies the wallets read on every cycle.
type Watchlist interface {
	Addresses() ([]common.Address, error)
}

// RunLog records refresh cycles.
type RunLog interface {
	InsertRefreshRun(r *db.RefreshRun) error
	PruneRefreshRuns(keep int) (int64, error)
}

// StoredWatchlist reads the watched_wallets table. Addresses from config are
// seeded into it at startup.
type StoredWatchlist struct{}

func (StoredWatchlist) Addresses() ([]common.Address, error) {
	stored, err := db.GetWatched()
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(stored))
	for _, sw := range stored {
		addr, err := wallet.ParseAddress(sw.Address)
		if err != nil {
			logging.Component("refresh").Warn().Str("address", sw.Address).Msg("skipping invalid watched address")
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}

// StoredRuns writes cycles to the refresh_runs table.
type StoredRuns struct{}

func (StoredRuns) InsertRefreshRun(r *db.RefreshRun) error  { return db.InsertRefreshRun(r) }
func (StoredRuns) PruneRefreshRuns(keep int) (int64, error) { return db.PruneRefreshRuns(keep) }

// dedupe keeps first occurrences and drops the zero address.
func dedupe(addrs []common.Address) []common.Address {
	seen := make(map[common.Address]bool, len(addrs))
	out := make([]common.Address, 0, len(addrs))
	for _, a := range addrs {
		if a == (common.Address{}) || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
