package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ENiaC-Space/stake7/internal/config"
	"github.com/ENiaC-Space/stake7/internal/daemon"
	"github.com/ENiaC-Space/stake7/internal/logging"
	"github.com/ENiaC-Space/stake7/internal/mcpserver"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var Version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "path to stake7.yaml")
	envPath := flag.String("env", ".env", "optional dotenv file with STAKE7_* overrides")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio instead of the HTTP API")
	flag.Parse()

	// A missing .env is normal; real environment variables still win.
	_ = godotenv.Load(*envPath)

	if *cfgPath == "" {
		home, _ := os.UserHomeDir()
		*cfgPath = filepath.Join(home, ".stake7", "stake7.yaml")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *cfgPath, err)
		os.Exit(1)
	}
	logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// stdout belongs to the MCP transport in -mcp mode.
	if !*mcpMode {
		fmt.Printf("\n  stake7  v%s\n  MasterChef staking yield calculator\n  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n", Version)
	}
	log.Info().Str("config", *cfgPath).Str("data_dir", cfg.DataDir).Msg("starting")

	d, err := daemon.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create daemon")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *mcpMode {
		if err := d.StartHeadless(); err != nil {
			d.Stop()
			log.Fatal().Err(err).Msg("failed to start daemon")
		}
		srv := mcpserver.New(Version, d, d.Yield())
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("MCP server exited")
		}
		d.Stop()
		return
	}

	if err := d.Start(); err != nil {
		d.Stop()
		log.Fatal().Err(err).Msg("failed to start daemon")
	}

	<-ctx.Done()
	log.Info().Msg("signal received, shutting down")
	d.Stop()
	log.Info().Msg("goodbye")
}
