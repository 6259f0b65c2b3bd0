// Package mobile provides gomobile-bindable functions for the stake7 daemon.
// All complex data is returned as JSON strings since gomobile cannot export
// maps, slices, or structs with unexported fields.
package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ENiaC-Space/stake7/internal/config"
	"github.com/ENiaC-Space/stake7/internal/daemon"
	"github.com/ENiaC-Space/stake7/internal/report"
	"github.com/ENiaC-Space/stake7/internal/wallet"

	// Required by gomobile bind at build time
	_ "golang.org/x/mobile/bind"
)

var (
	mu      sync.Mutex
	d       *daemon.Daemon
	running bool
	version = "0.1.0"
)

// Start initialises and starts the stake7 daemon.
// configYAML may be empty to use defaults. dataDir is the path to the app's
// private files directory (e.g. Context.getFilesDir() + "/stake7").
func Start(configYAML string, dataDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if running {
		return fmt.Errorf("already running")
	}

	cfg, err := config.LoadFromBytes([]byte(configYAML))
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	// On mobile, bind to all interfaces so the API is reachable from localhost
	cfg.API.Bind = "0.0.0.0"

	d, err = daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		d.Stop()
		d = nil
		return fmt.Errorf("start daemon: %w", err)
	}

	running = true
	return nil
}

// Stop gracefully shuts down the daemon.
func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if d != nil {
		d.Stop()
		d = nil
	}
	running = false
}

// IsRunning returns true if the daemon is currently running.
func IsRunning() bool {
	mu.Lock()
	defer mu.Unlock()
	return running
}

// GetStatus returns full daemon status as a JSON string.
func GetStatus() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return `{"running":false}`
	}

	status := map[string]interface{}{
		"running":   true,
		"node_id":   d.NodeID(),
		"uptime_ms": d.Uptime().Milliseconds(),
		"chain":     d.ChainStatus(),
		"refresh":   d.Yield().Progress(),
	}

	data, _ := json.Marshal(status)
	return string(data)
}

// GetPool returns the latest pool report as a JSON string, or {"error":"..."}.
func GetPool() string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return errorJSON("daemon not running")
	}
	dash := d.Yield().Dashboard()
	if dash == nil {
		return errorJSON("no pool data yet")
	}
	data, _ := json.Marshal(report.NewPool(dash, d.TokenSymbol()))
	return string(data)
}

// GetWallet returns the report for any wallet address as a JSON string.
func GetWallet(address string) string {
	mu.Lock()
	defer mu.Unlock()

	if d == nil {
		return errorJSON("daemon not running")
	}
	addr, err := wallet.ParseAddress(address)
	if err != nil {
		return errorJSON(err.Error())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	view, err := d.Yield().View(ctx, addr)
	if err != nil {
		return errorJSON(err.Error())
	}
	data, _ := json.Marshal(report.NewWallet(view, d.TokenSymbol()))
	return string(data)
}

// GetAPIPort returns the port the HTTP API is listening on.
func GetAPIPort() int {
	mu.Lock()
	defer mu.Unlock()
	if d == nil {
		return 0
	}
	return d.APIPort()
}

// GetVersion returns the stake7 version string.
func GetVersion() string {
	return version
}

func errorJSON(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
