package refresh

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/ethereum/go-ethereum/common"
)

// viewCache holds ad-hoc wallet views for addresses outside the watchlist.
// Each entry remembers the dashboard whose pool it was computed against.
type viewCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func newViewCache(maxEntries int64, ttl time.Duration) (*viewCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Every entry costs 1 so MaxCost is an entry count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &viewCache{c: c, ttl: ttl}, nil
}

type cachedView struct {
	view WalletView
	dash *Dashboard // nil when computed before the first cycle
}

// get returns the view for addr only if it was computed against current.
func (vc *viewCache) get(addr common.Address, current *Dashboard) (WalletView, bool) {
	v, ok := vc.c.Get(addr.Hex())
	if !ok {
		return WalletView{}, false
	}
	e, ok := v.(cachedView)
	if !ok || e.dash != current {
		return WalletView{}, false
	}
	return e.view, true
}

func (vc *viewCache) put(addr common.Address, view WalletView, against *Dashboard) {
	vc.c.SetWithTTL(addr.Hex(), cachedView{view: view, dash: against}, 1, vc.ttl)
	vc.c.Wait()
}

// reset drops everything; views are only valid against the pool they were computed with.
func (vc *viewCache) reset() {
	vc.c.Clear()
}

func (vc *viewCache) close() {
	vc.c.Close()
}
