package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ENiaC-Space/stake7/internal/logging"
	"github.com/ENiaC-Space/stake7/internal/refresh"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// DaemonInfo provides read-only access to daemon state for the API.
type DaemonInfo interface {
	NodeID() string
	Uptime() time.Duration
	ChainStatus() map[string]interface{}
	TokenSymbol() string
}

// Yield is the refresh service as seen by the API.
type Yield interface {
	Dashboard() *refresh.Dashboard
	Progress() refresh.Progress
	View(ctx context.Context, addr common.Address) (refresh.WalletView, error)
}

// corsMiddleware allows cross-origin requests from dashboards served elsewhere.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server is the HTTP JSON API for the stake7 daemon.
type Server struct {
	httpSrv *http.Server
	daemon  DaemonInfo
	yield   Yield
	bind    string
	port    int
	log     zerolog.Logger
}

// New creates an HTTP server.
func New(bind string, port int, daemon DaemonInfo, yield Yield) *Server {
	s := &Server{daemon: daemon, yield: yield, bind: bind, port: port, log: logging.Component("api")}
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpSrv = &http.Server{
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start pre-acquires the port and begins serving HTTP requests.
// If the primary port is in use, it falls back to port+1.
// Returns the actual port bound.
func (s *Server) Start() (int, error) {
	addr := fmt.Sprintf("%s:%d", s.bind, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fallbackPort := s.port + 1
		fallbackAddr := fmt.Sprintf("%s:%d", s.bind, fallbackPort)
		ln, err = net.Listen("tcp", fallbackAddr)
		if err != nil {
			return 0, fmt.Errorf("listen on %s and fallback %s: %w", addr, fallbackAddr, err)
		}
		s.log.Warn().Int("port", fallbackPort).Int("primary", s.port).Msg("using fallback port")
		s.port = fallbackPort
	}
	if s.port == 0 {
		s.port = ln.Addr().(*net.TCPAddr).Port
	}

	s.log.Info().Str("bind", s.bind).Int("port", s.port).Msg("HTTP API listening")
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return s.port, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpSrv.Shutdown(ctx)
	s.log.Info().Msg("HTTP server stopped")
}
