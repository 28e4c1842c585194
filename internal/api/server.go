// Package api serves the status and control HTTP surface: engine
// status, trade history, latest scan, Prometheus metrics, a WebSocket
// status stream, and TOTP-guarded control endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"apextrader/internal/engine"
	"apextrader/internal/model"
)

// TradeHistory is the journal view the API reads from.
type TradeHistory interface {
	RecentTrades(ctx context.Context, limit int) ([]model.Trade, error)
	DailyStats(ctx context.Context, date string) (model.DailyStats, error)
	DailyHistory(ctx context.Context, days int) ([]model.DailyStats, error)
	AllTimeStats(ctx context.Context) (model.AllTimeStats, error)
}

// Server hosts the HTTP API. Control endpoints require a valid TOTP
// code; with no secret configured they are disabled outright.
type Server struct {
	srv        *http.Server
	log        *slog.Logger
	eng        *engine.Engine
	history    TradeHistory
	hub        *Hub
	totpSecret string
	configView any // redacted config served at /api/v1/config
	loc        *time.Location
	startedAt  time.Time
}

// NewServer builds the server. hub may be nil to disable /ws;
// configView is marshaled as-is, so pass a credential-free view.
// loc is the trading timezone used to bucket "today".
func NewServer(addr string, eng *engine.Engine, history TradeHistory, hub *Hub,
	totpSecret string, configView any, loc *time.Location, log *slog.Logger) *Server {

	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{
		log:        log,
		eng:        eng,
		history:    history,
		hub:        hub,
		totpSecret: totpSecret,
		configView: configView,
		loc:        loc,
		startedAt:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/trades/recent", s.handleRecentTrades)
	mux.HandleFunc("/api/v1/trades/daily", s.handleDailyTrades)
	mux.HandleFunc("/api/v1/trades/all-time", s.handleAllTime)
	mux.HandleFunc("/api/v1/scan/latest", s.handleLatestScan)
	mux.HandleFunc("/api/v1/config", s.handleConfig)
	mux.HandleFunc("/api/v1/control/stop", s.requireTOTP(s.handleStop))
	mux.HandleFunc("/api/v1/control/resume", s.requireTOTP(s.handleResume))
	mux.Handle("/metrics", promhttp.Handler())
	if hub != nil {
		mux.HandleFunc("/ws", hub.ServeWS)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("api server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server error", "err", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-TOTP-Code")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.eng.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"state":  st.State,
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Status())
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be 1..1000")
			return
		}
		limit = n
	}
	trades, err := s.history.RecentTrades(r.Context(), limit)
	if err != nil {
		s.log.Error("recent trades query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "trade history unavailable")
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleDailyTrades(w http.ResponseWriter, r *http.Request) {
	today := time.Now().In(s.loc).Format("2006-01-02")

	todayStats, err := s.history.DailyStats(r.Context(), today)
	if err != nil {
		s.log.Error("daily stats query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "trade history unavailable")
		return
	}
	history, err := s.history.DailyHistory(r.Context(), 30)
	if err != nil {
		s.log.Error("daily history query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "trade history unavailable")
		return
	}
	if history == nil {
		history = []model.DailyStats{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"today":   todayStats,
		"history": history,
	})
}

func (s *Server) handleAllTime(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.AllTimeStats(r.Context())
	if err != nil {
		s.log.Error("all-time stats query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "trade history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLatestScan(w http.ResponseWriter, r *http.Request) {
	res := s.eng.LastScan()
	if res == nil {
		writeError(w, http.StatusNotFound, "no scan completed yet")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configView)
}

// requireTOTP guards a control handler with a time-based one-time code
// from the X-TOTP-Code header (or totp query parameter).
func (s *Server) requireTOTP(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			setCORS(w)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if s.totpSecret == "" {
			writeError(w, http.StatusForbidden, "control endpoints disabled: no TOTP secret configured")
			return
		}
		code := r.Header.Get("X-TOTP-Code")
		if code == "" {
			code = r.URL.Query().Get("totp")
		}
		if !totp.Validate(code, s.totpSecret) {
			s.log.Warn("control request rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid TOTP code")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.eng.EmergencyStop(fmt.Sprintf("api control from %s", r.RemoteAddr))
	writeJSON(w, http.StatusOK, map[string]string{"result": "emergency stop set"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.eng.ClearEmergencyStop()
	writeJSON(w, http.StatusOK, map[string]string{"result": "trading resumed"})
}
