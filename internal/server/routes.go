package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ENiaC-Space/stake7/internal/db"
	"github.com/ENiaC-Space/stake7/internal/preflight"
	"github.com/ENiaC-Space/stake7/internal/refresh"
	"github.com/ENiaC-Space/stake7/internal/report"
	"github.com/ENiaC-Space/stake7/internal/wallet"
	"github.com/ENiaC-Space/stake7/internal/yield"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "0.1.0"

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /api/pool", s.handlePool)
	mux.HandleFunc("GET /api/wallets/{address}", s.handleWallet)
	mux.HandleFunc("GET /api/wallets/{address}/check", s.handleCheck)
	mux.HandleFunc("GET /api/watchlist", s.handleWatchlist)
	mux.HandleFunc("POST /api/watchlist", s.handleWatch)
	mux.HandleFunc("DELETE /api/watchlist/{address}", s.handleUnwatch)
	mux.HandleFunc("GET /api/refresh/runs", s.handleRefreshRuns)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func shortID(id string) string {
	if len(id) > 16 {
		return id[:16]
	}
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"version":   version,
		"node_id":   shortID(s.daemon.NodeID()),
		"uptime_ms": s.daemon.Uptime().Milliseconds(),
		"block":     s.yield.Progress().Block,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	watched, _ := db.GetWatched()
	writeJSON(w, map[string]interface{}{
		"node_id":   s.daemon.NodeID(),
		"uptime_ms": s.daemon.Uptime().Milliseconds(),
		"chain":     s.daemon.ChainStatus(),
		"refresh":   s.yield.Progress(),
		"watchlist": len(watched),
	})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	dash := s.yield.Dashboard()
	if dash == nil {
		writeError(w, 503, "no pool data yet")
		return
	}
	writeJSON(w, report.NewPool(dash, s.daemon.TokenSymbol()))
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	view, ok := s.walletView(w, r)
	if !ok {
		return
	}
	rep := report.NewWallet(view, s.daemon.TokenSymbol())
	watched, err := db.IsWatched(rep.Address)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	rep.Watched = watched
	writeJSON(w, rep)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action, err := preflight.ParseAction(q.Get("action"))
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	view, ok := s.walletView(w, r)
	if !ok {
		return
	}
	res, err := preflight.Check(action, q.Get("amount"), view, s.daemon.TokenSymbol())
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	writeJSON(w, res)
}

// walletView resolves the {address} path value and reads its view, writing
// the error response itself when it fails.
func (s *Server) walletView(w http.ResponseWriter, r *http.Request) (refresh.WalletView, bool) {
	addr, err := wallet.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, 400, err.Error())
		return refresh.WalletView{}, false
	}
	view, err := s.yield.View(r.Context(), addr)
	if err != nil {
		s.log.Warn().Err(err).Str("address", addr.Hex()).Msg("wallet view failed")
		writeError(w, viewStatus(err), err.Error())
		return refresh.WalletView{}, false
	}
	return view, true
}

// viewStatus maps a View failure to a status code. Chain data that fails the
// calculator's validation is a server fault; failed reads and a stopping
// service mean the data is temporarily unavailable.
func viewStatus(err error) int {
	if errors.Is(err, yield.ErrInvalidInput) {
		return 500
	}
	return 503
}

type watchEntry struct {
	db.WatchedWallet
	Wallet *report.Wallet `json:"wallet,omitempty"`
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	watched, err := db.GetWatched()
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	dash := s.yield.Dashboard()
	entries := make([]watchEntry, 0, len(watched))
	for _, ww := range watched {
		e := watchEntry{WatchedWallet: ww}
		if addr, err := wallet.ParseAddress(ww.Address); err == nil {
			if v, ok := dash.Wallet(addr); ok {
				rep := report.NewWallet(v, s.daemon.TokenSymbol())
				e.Wallet = &rep
			}
		}
		entries = append(entries, e)
	}
	writeJSON(w, entries)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string  `json:"address"`
		Label   *string `json:"label"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON body")
		return
	}
	addr, err := wallet.ParseAddress(req.Address)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	if err := db.AddWatched(addr.Hex(), req.Label); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	s.log.Info().Str("address", addr.Hex()).Msg("watching wallet")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(201)
	json.NewEncoder(w).Encode(map[string]interface{}{"address": addr.Hex(), "label": req.Label})
}

func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	addr, err := wallet.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	removed, err := db.RemoveWatched(addr.Hex())
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if !removed {
		writeError(w, 404, "address is not watched")
		return
	}
	writeJSON(w, map[string]interface{}{"address": addr.Hex(), "removed": true})
}

func (s *Server) handleRefreshRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, 400, "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}
	runs, err := db.GetRecentRefreshRuns(limit)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if runs == nil {
		runs = []db.RefreshRun{}
	}
	writeJSON(w, runs)
}
