// Package api serves a live evacuation to renderers over HTTP.
// GET endpoints are public and read-only.
// POST endpoints require a bearer token.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/evacsim/internal/engine"
	"github.com/talgya/evacsim/internal/persistence"
)

const maxSSEConns = 4

// Server serves one world over HTTP.
type Server struct {
	World    *engine.World
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; run history endpoints answer 503 without it
	Port     int
	AdminKey string   // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string   // Bearer token for the stream. Empty = stream is public.
	Origins  []string // Browser origins allowed by CORS in addition to DevOrigins

	// Poll period of the stream; zero means 100ms.
	StreamPoll time.Duration

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	runsLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public observation endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/telemetry", s.handleTelemetry)
	mux.HandleFunc("/api/v1/runs", RateLimitMiddleware(runsLimiter, s.handleRuns))
	mux.HandleFunc("/api/v1/run/", RateLimitMiddleware(runsLimiter, s.handleRunDetail))

	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints.
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	origins := append(DevOrigins[:len(DevOrigins):len(DevOrigins)], s.Origins...)
	return corsMiddleware(origins, mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// DevOrigins are the local renderer dev servers, always allowed.
var DevOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

// corsMiddleware lets the listed renderer origins call the API from a
// browser and answers preflight requests.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerMatches(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly requires the admin bearer token on POST. GET passes through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no EVACSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !bearerMatches(r, s.AdminKey) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":    "evacsim",
		"world":   s.World.Status(),
		"speed":   s.Eng.Speed(),
		"running": s.Eng.IsRunning(),
	})
}

// handleMap returns the static building: size and every non-floor cell.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	g := s.World.Grid()
	writeJSON(w, map[string]any{
		"width":   g.Width,
		"height":  g.Height,
		"terrain": s.World.Terrain(),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	views := s.World.Snapshot()
	if role := r.URL.Query().Get("role"); role != "" {
		kept := views[:0]
		for _, v := range views {
			if strings.EqualFold(v.Role, role) {
				kept = append(kept, v)
			}
		}
		views = kept
	}
	writeJSON(w, views)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.World.Result())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no database", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be 1-500", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.DB.Runs(limit)
	if err != nil {
		slog.Error("list runs", "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunRecord{}
	}
	writeJSON(w, runs)
}

// handleRunDetail serves GET /api/v1/run/:id with the safe series and
// per-exit tallies.
func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no database", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/run/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	run, err := s.DB.Run(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("load run", "id", id, "error", err)
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// frame is one streamed tick.
type frame struct {
	Status engine.Status      `json:"status"`
	Agents []engine.AgentView `json:"agents"`
}

// handleStream pushes a frame over SSE each time the world advances, then a
// final "done" event with the run result once everyone is safe or the tick
// bound is reached.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey != "" && !bearerMatches(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	slog.Info("SSE client connected", "remote", r.RemoteAddr)

	poll := s.StreamPoll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	last := -1
	for {
		if tick := s.World.Tick(); tick != last {
			last = tick
			writeSSE(w, "tick", frame{Status: s.World.Status(), Agents: s.World.Snapshot()})
			flusher.Flush()
		}
		if s.World.Finished() {
			writeSSE(w, "done", s.World.Result())
			flusher.Flush()
			return
		}

		select {
		case <-ticker.C:
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

// writeSSE writes a single event in SSE format.
func writeSSE(w http.ResponseWriter, event string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
