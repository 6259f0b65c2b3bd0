package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ENiaC-Space/stake7/internal/chain"
	"github.com/ENiaC-Space/stake7/internal/db"
	"github.com/ENiaC-Space/stake7/internal/logging"
	"github.com/ENiaC-Space/stake7/internal/wallet"
	"github.com/ENiaC-Space/stake7/internal/yield"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned by View after Stop.
var ErrStopped = errors.New("refresh service stopped")

// ChainReader is the subset of chain.Reader the service uses.
type ChainReader interface {
	Pool(ctx context.Context) (*chain.PoolState, error)
	Wallet(ctx context.Context, addr common.Address) (*chain.WalletState, error)
}

// Config configures the refresh loop.
type Config struct {
	Interval     time.Duration
	Timing       yield.ChainTiming
	Owner        common.Address
	CacheTTL     time.Duration
	CacheEntries int64
	KeepRuns     int
	Parallelism  int
}

// Service periodically reads the pool and the watched wallets and publishes
// a Dashboard.
type Service struct {
	cfg    Config
	reader ChainReader
	watch  Watchlist
	runs   RunLog
	cache  *viewCache
	log    zerolog.Logger

	mu       sync.RWMutex
	dash     *Dashboard
	progress Progress

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a refresh service. runs may be nil to skip the cycle log.
func New(cfg Config, reader ChainReader, watch Watchlist, runs RunLog) (*Service, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timing == (yield.ChainTiming{}) {
		cfg.Timing = yield.DefaultTiming
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cfg.Interval
	}
	if cfg.KeepRuns <= 0 {
		cfg.KeepRuns = 1000
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}

	cache, err := newViewCache(cfg.CacheEntries, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("view cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:    cfg,
		reader: reader,
		watch:  watch,
		runs:   runs,
		cache:  cache,
		log:    logging.Component("refresh"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// Start runs one cycle immediately and then one per interval until Stop.
func (s *Service) Start() {
	s.mu.Lock()
	s.progress.Running = true
	s.mu.Unlock()
	go s.run()
}

// Stop cancels the loop and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.RLock()
	started := s.progress.Running
	s.mu.RUnlock()

	s.cancel()
	if started {
		<-s.done
	}
	s.cache.close()

	s.mu.Lock()
	s.progress.Running = false
	s.mu.Unlock()
	s.log.Info().Msg("refresh service stopped")
}

// Dashboard returns the latest published dashboard, or nil before the first
// successful cycle.
func (s *Service) Dashboard() *Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dash
}

// Progress returns a snapshot of the loop's state.
func (s *Service) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *Service) run() {
	defer close(s.done)

	s.Refresh(s.ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(s.ctx)
		}
	}
}

// Refresh runs a single cycle. On failure the previous dashboard stays published.
func (s *Service) Refresh(ctx context.Context) error {
	started := time.Now()
	dash, err := s.collect(ctx)
	elapsed := time.Since(started)

	cycleSeconds.Observe(elapsed.Seconds())
	run := &db.RefreshRun{StartedAt: started.Unix(), DurationMs: elapsed.Milliseconds()}

	s.mu.Lock()
	s.progress.Cycles++
	s.progress.LastRunAt = started.Unix()
	s.progress.LastDurationMs = elapsed.Milliseconds()
	if err != nil {
		s.progress.Failures++
		s.progress.LastError = err.Error()
	} else {
		s.dash = dash
		s.progress.LastError = ""
		s.progress.LastSuccessAt = dash.UpdatedAt.Unix()
		s.progress.Block = dash.Block
		s.progress.Wallets = len(dash.Wallets)
	}
	s.mu.Unlock()

	if err != nil {
		cyclesTotal.WithLabelValues("error").Inc()
		msg := err.Error()
		run.Error = &msg
		s.log.Warn().Err(err).Dur("took", elapsed).Msg("refresh failed; keeping previous dashboard")
	} else {
		cyclesTotal.WithLabelValues("ok").Inc()
		s.cache.reset()
		observePool(dash)
		run.OK = true
		run.BlockNumber = &dash.Block
		run.Wallets = len(dash.Wallets)
		s.log.Debug().Uint64("block", dash.Block).Int("wallets", run.Wallets).
			Str("apr", dash.Pool.Metrics.APR.StringFixed(2)).Dur("took", elapsed).Msg("refreshed")
	}
	s.record(run)
	return err
}

func (s *Service) record(run *db.RefreshRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.InsertRefreshRun(run); err != nil {
		s.log.Warn().Err(err).Msg("failed to log refresh run")
		return
	}
	if run.ID%100 == 0 {
		if _, err := s.runs.PruneRefreshRuns(s.cfg.KeepRuns); err != nil {
			s.log.Warn().Err(err).Msg("failed to prune refresh runs")
		}
	}
}

// collect performs every read of a cycle; nothing is computed until all of them succeed.
func (s *Service) collect(ctx context.Context) (*Dashboard, error) {
	var addrs []common.Address
	if s.watch != nil {
		var err error
		if addrs, err = s.watch.Addresses(); err != nil {
			return nil, fmt.Errorf("watchlist: %w", err)
		}
	}
	addrs = dedupe(append([]common.Address{s.cfg.Owner}, addrs...))

	pool, err := s.reader.Pool(ctx)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}

	states := make([]*chain.WalletState, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			st, err := s.reader.Wallet(gctx, addr)
			if err != nil {
				return fmt.Errorf("wallet %s: %w", wallet.Short(addr), err)
			}
			states[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics, err := yield.Compute(pool.Snapshot, nil, s.cfg.Timing)
	if err != nil {
		return nil, err
	}
	dash := &Dashboard{
		UpdatedAt: time.Now(),
		Block:     pool.Block,
		Owner:     s.cfg.Owner,
		Pool:      PoolView{State: pool, Metrics: metrics},
		Wallets:   make(map[common.Address]WalletView, len(addrs)),
	}
	for _, st := range states {
		view, err := s.walletView(pool, st)
		if err != nil {
			return nil, err
		}
		dash.Wallets[st.Address] = view
	}
	return dash, nil
}

func (s *Service) walletView(pool *chain.PoolState, st *chain.WalletState) (WalletView, error) {
	m, err := yield.Compute(pool.Snapshot, &st.Position, s.cfg.Timing)
	if err != nil {
		return WalletView{}, fmt.Errorf("wallet %s: %w", wallet.Short(st.Address), err)
	}
	return WalletView{
		State:      st,
		Projection: m.User,
		Own:        wallet.NewView(s.cfg.Owner, st.Address).IsOwn(),
	}, nil
}

// View returns the wallet view for any address. Watched wallets come from the
// current dashboard; others are read on demand and cached until the next
// successful cycle or the cache TTL. A view read while a cycle publishes is
// returned but not served again from the cache.
func (s *Service) View(ctx context.Context, addr common.Address) (WalletView, error) {
	if s.ctx.Err() != nil {
		return WalletView{}, ErrStopped
	}
	dash := s.Dashboard()
	if v, ok := dash.Wallet(addr); ok {
		return v, nil
	}
	if v, ok := s.cache.get(addr, dash); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	var pool *chain.PoolState
	if dash != nil {
		pool = dash.Pool.State
	} else {
		var err error
		if pool, err = s.reader.Pool(ctx); err != nil {
			return WalletView{}, fmt.Errorf("pool: %w", err)
		}
	}
	st, err := s.reader.Wallet(ctx, addr)
	if err != nil {
		return WalletView{}, fmt.Errorf("wallet %s: %w", wallet.Short(addr), err)
	}
	view, err := s.walletView(pool, st)
	if err != nil {
		return WalletView{}, err
	}
	s.cache.put(addr, view, dash)
	return view, nil
}
