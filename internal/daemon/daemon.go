package daemon

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ENiaC-Space/stake7/internal/chain"
	"github.com/ENiaC-Space/stake7/internal/config"
	"github.com/ENiaC-Space/stake7/internal/db"
	"github.com/ENiaC-Space/stake7/internal/logging"
	"github.com/ENiaC-Space/stake7/internal/refresh"
	"github.com/ENiaC-Space/stake7/internal/server"
	"github.com/ENiaC-Space/stake7/internal/wallet"
	"github.com/ENiaC-Space/stake7/internal/yield"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// Dialer connects to a node. Tests replace it to avoid the network.
type Dialer func(ctx context.Context, urls []string, chainID int64) (chain.Backend, string, error)

func dialEthclient(ctx context.Context, urls []string, chainID int64) (chain.Backend, string, error) {
	c, url, err := chain.Dial(ctx, urls, chainID)
	if err != nil {
		return nil, "", err
	}
	return c, url, nil
}

// Daemon orchestrates all stake7 subsystems.
type Daemon struct {
	cfg       *config.Config
	dial      Dialer
	nodeID    string
	startTime time.Time
	owner     common.Address
	backend   chain.Backend
	rpcURL    string
	session   *chain.Session
	yield     *refresh.Service
	httpSrv   *server.Server
	apiPort   int
	stopCh    chan struct{}
	log       zerolog.Logger
}

// New creates a new daemon instance.
func New(cfg *config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:    cfg,
		dial:   dialEthclient,
		stopCh: make(chan struct{}),
		log:    logging.Component("daemon"),
	}, nil
}

// SetDialer overrides how the daemon reaches the chain.
func (d *Daemon) SetDialer(fn Dialer) { d.dial = fn }

// Start initializes and starts all subsystems in order.
func (d *Daemon) Start() error {
	return d.start(true)
}

// StartHeadless starts everything except the HTTP API, for the MCP stdio mode.
func (d *Daemon) StartHeadless() error {
	return d.start(false)
}

func (d *Daemon) start(withAPI bool) error {
	d.startTime = time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Open database
	if err := os.MkdirAll(d.cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if err := db.Open(d.cfg.DBPath()); err != nil {
		return fmt.Errorf("db open: %w", err)
	}

	// 2. Get node ID
	nodeID, err := db.GetNodeID()
	if err != nil {
		return fmt.Errorf("get node id: %w", err)
	}
	d.nodeID = nodeID
	d.log.Info().Str("node_id", shortID(nodeID)).Msg("starting")

	// 3. Owner wallet and configured watchlist
	if d.cfg.Wallet.Address != "" {
		if d.owner, err = wallet.ParseAddress(d.cfg.Wallet.Address); err != nil {
			return fmt.Errorf("wallet address: %w", err)
		}
		d.log.Info().Str("owner", wallet.Short(d.owner)).Msg("own wallet configured")
	}
	for _, w := range d.cfg.Refresh.Watch {
		addr, err := wallet.ParseAddress(w)
		if err != nil {
			return fmt.Errorf("refresh.watch: %w", err)
		}
		if err := db.AddWatched(addr.Hex(), nil); err != nil {
			return fmt.Errorf("seed watchlist: %w", err)
		}
	}

	// 4. Connect to the chain and bind the contracts
	d.backend, d.rpcURL, err = d.dial(ctx, d.cfg.Chain.RPCURLs, d.cfg.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("chain: %w", err)
	}
	d.session, err = chain.NewSession(ctx, d.backend, chain.SessionConfig{
		Token:      common.HexToAddress(d.cfg.Contracts.Token),
		MasterChef: common.HexToAddress(d.cfg.Contracts.MasterChef),
		PoolID:     d.cfg.Contracts.PoolID,
		Decimals:   d.cfg.Contracts.TokenDecimals,
		Symbol:     d.cfg.Contracts.TokenSymbol,
	})
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	d.log.Info().Uint64("pool_id", d.session.PoolID).Uint8("decimals", d.session.Decimals).
		Str("masterchef", wallet.Short(d.session.MasterChef)).Msg("contracts bound")

	binding := fmt.Sprintf("%d/%s/%d", d.cfg.Chain.ChainID, d.session.MasterChef.Hex(), d.session.PoolID)
	if prev, err := db.SwapBinding(binding); err != nil {
		d.log.Warn().Err(err).Msg("failed to record contract binding")
	} else if prev != "" && prev != binding {
		d.log.Warn().Str("previous", prev).Str("current", binding).
			Msg("contract binding changed; refresh history belongs to the previous pool")
	}

	// 5. Start refresh loop
	d.yield, err = refresh.New(refresh.Config{
		Interval: d.cfg.Refresh.Interval,
		Timing: yield.ChainTiming{
			BlocksPerDay:  d.cfg.Chain.BlocksPerDay,
			BlocksPerYear: d.cfg.Chain.BlocksPerYear,
		},
		Owner:        d.owner,
		CacheTTL:     d.cfg.Cache.TTL,
		CacheEntries: d.cfg.Cache.MaxEntries,
	}, chain.NewReader(d.session, d.cfg.Chain.CallTimeout), refresh.StoredWatchlist{}, refresh.StoredRuns{})
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	d.yield.Start()

	// 6. Start HTTP API
	if withAPI {
		d.httpSrv = server.New(d.cfg.API.Bind, d.cfg.API.Port, d, d.yield)
		port, err := d.httpSrv.Start()
		if err != nil {
			return fmt.Errorf("http start: %w", err)
		}
		d.apiPort = port
	}

	go d.statusLoop()
	return nil
}

// statusLoop logs a one-line summary every minute.
func (d *Daemon) statusLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			p := d.yield.Progress()
			ev := d.log.Info().Uint64("block", p.Block).Int("wallets", p.Wallets).
				Int64("cycles", p.Cycles).Int64("failures", p.Failures)
			if dash := d.yield.Dashboard(); dash != nil {
				ev = ev.Str("apr", dash.Pool.Metrics.APR.StringFixed(2)).Str("tier", string(dash.Pool.Metrics.Tier))
			}
			ev.Msg("status")
		}
	}
}

// Stop shuts down all subsystems in reverse start order.
func (d *Daemon) Stop() {
	d.log.Info().Msg("shutting down")
	close(d.stopCh)

	if d.httpSrv != nil {
		d.httpSrv.Stop()
	}
	if d.yield != nil {
		d.yield.Stop()
	}
	if c, ok := d.backend.(*ethclient.Client); ok {
		c.Close()
	}
	db.Close()

	d.log.Info().Msg("shutdown complete")
}

// --- Status accessors (used by HTTP API, MCP and mobile) ---

func (d *Daemon) NodeID() string          { return d.nodeID }
func (d *Daemon) Uptime() time.Duration   { return time.Since(d.startTime) }
func (d *Daemon) TokenSymbol() string     { return d.cfg.Contracts.TokenSymbol }
func (d *Daemon) APIPort() int            { return d.apiPort }
func (d *Daemon) Yield() *refresh.Service { return d.yield }

func (d *Daemon) ChainStatus() map[string]interface{} {
	status := map[string]interface{}{
		"chain_id":   d.cfg.Chain.ChainID,
		"rpc_url":    d.rpcURL,
		"token":      d.cfg.Contracts.Token,
		"masterchef": d.cfg.Contracts.MasterChef,
		"pool_id":    d.cfg.Contracts.PoolID,
		"symbol":     d.cfg.Contracts.TokenSymbol,
	}
	if d.session != nil {
		status["decimals"] = d.session.Decimals
	}
	if d.owner != (common.Address{}) {
		status["owner"] = d.owner.Hex()
	}
	return status
}

func shortID(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}
