// Command hem-server exposes the simulation engine over HTTP: runs are
// started through a small REST API, progress streams over WebSocket, and
// Prometheus metrics are served alongside.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/home-energy-foundry/hem0424/internal/aggregate"
	"github.com/home-energy-foundry/hem0424/internal/building"
	"github.com/home-energy-foundry/hem0424/internal/config"
	"github.com/home-energy-foundry/hem0424/internal/engine"
	"github.com/home-energy-foundry/hem0424/internal/repository"
	"github.com/home-energy-foundry/hem0424/internal/runstore"
	"github.com/home-energy-foundry/hem0424/internal/weather"
	"github.com/home-energy-foundry/hem0424/internal/ws"
	"github.com/home-energy-foundry/hem0424/pkg/logging"
	"github.com/home-energy-foundry/hem0424/pkg/metrics"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dbDSN := flag.String("db", "", "Postgres DSN for run persistence (optional)")
	stride := flag.Int("stream-stride", 24, "broadcast every Nth step over the WebSocket")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	log := logging.New("hem-server", logging.ParseLevel(*logLevel))
	col := metrics.NewCollector("hem")

	var repo repository.RunRepository
	if *dbDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		r, err := repository.Open(ctx, *dbDSN)
		cancel()
		if err != nil {
			log.Error("database unavailable", nil, err)
			os.Exit(1)
		}
		repo = r
		log.Info("run persistence enabled", nil)
	}

	hub := ws.NewHub(log)
	hub.OnClientCount = func(n int) { col.ActiveStreamClients.Set(float64(n)) }

	srv := &server{
		log:    log,
		col:    col,
		hub:    hub,
		repo:   repo,
		runs:   runstore.New(50),
		stride: *stride,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", srv.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/ws", ws.NewHandler(hub, log))
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", srv.handleStartRun).Methods(http.MethodPost)
	api.HandleFunc("/runs", srv.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", srv.handleGetRun).Methods(http.MethodGet)

	httpSrv := &http.Server{
		Addr:         *addr,
		Handler:      handlers.CombinedLoggingHandler(os.Stdout, handlers.CORS()(r)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open
	}

	go func() {
		log.Info("listening", logging.Fields{"addr": *addr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", nil, err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("shutdown", nil, err)
	}
}

// server holds the shared state behind the HTTP handlers. One simulation
// runs at a time; results stay in memory and optionally in Postgres.
type server struct {
	log    *logging.Logger
	col    *metrics.Collector
	hub    *ws.Hub
	repo   repository.RunRepository
	runs   *runstore.Store
	stride int

	mu      sync.Mutex
	running bool
}

// startRunRequest is the POST /api/runs body: the full dwelling document,
// optionally with a server-side weather file path.
type startRunRequest struct {
	Config      json.RawMessage `json:"config"`
	WeatherFile string          `json:"weather_file,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.repo.HealthCheck(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer s.col.ObserveRequest("/api/runs", r.Method, "200", start)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req startRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := config.Parse(req.Config)
	if err != nil {
		http.Error(w, "invalid config: "+err.Error(), http.StatusBadRequest)
		return
	}
	wx, err := doc.BuildWeather(req.WeatherFile)
	if err != nil {
		http.Error(w, "weather: "+err.Error(), http.StatusBadRequest)
		return
	}
	d, err := building.New(doc)
	if err != nil {
		http.Error(w, "config: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "a simulation is already running", http.StatusConflict)
		return
	}
	s.running = true
	s.mu.Unlock()

	rec := runstore.Record{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Status:    runstore.StatusRunning,
	}
	s.runs.Add(rec)

	go s.execute(rec.ID, d, wx)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(rec)
}

func (s *server) execute(runID string, d *building.Dwelling, wx *weather.Series) {
	runLog := s.log.WithFields(logging.Fields{"run_id": runID})
	start := time.Now()

	finish := func(status, errMsg string, summary *aggregate.AnnualSummary) {
		s.runs.Complete(runID, status, errMsg, summary)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.col.RunsTotal.WithLabelValues(status).Inc()
		s.col.RunDuration.Observe(time.Since(start).Seconds())
	}

	totalSteps := int(8760 / d.StepHours)
	bridge := ws.NewBridge(s.hub, runLog, runID, totalSteps, s.stride)
	eng, err := engine.New(d, wx, runLog, bridge)
	if err != nil {
		s.broadcastError(runID, err)
		finish(runstore.StatusFailed, err.Error(), nil)
		return
	}

	if msg, err := ws.NewEnvelope(ws.TypeRunStarted, ws.RunStartedPayload{
		RunID:      runID,
		Zones:      zoneNames(d),
		StepHours:  d.StepHours,
		TotalSteps: totalSteps,
	}); err == nil {
		s.hub.Broadcast(msg)
	}

	if err := eng.Run(context.Background()); err != nil {
		s.broadcastError(runID, err)
		finish(runstore.StatusFailed, err.Error(), nil)
		return
	}

	results := eng.Results()
	s.col.StepsSimulated.Add(float64(len(results)))
	summary, err := aggregate.Summarize(d, results, eng.Dispatcher().Supplies())
	if err != nil {
		s.broadcastError(runID, err)
		finish(runstore.StatusFailed, err.Error(), nil)
		return
	}
	s.col.UnconvergedSteps.Add(float64(summary.UnconvergedSteps))

	if msg, err := ws.NewEnvelope(ws.TypeRunFinished, ws.RunFinishedPayload{
		RunID:   runID,
		Summary: summary,
	}); err == nil {
		s.hub.Broadcast(msg)
	}

	if s.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := s.repo.SaveRun(ctx, "api", "api", summary); err != nil {
			runLog.Error("persist run", nil, err)
		}
		cancel()
	}
	finish(runstore.StatusDone, "", summary)
	runLog.Info("run finished", logging.Fields{"rating": summary.Rating.Band})
}

func (s *server) broadcastError(runID string, err error) {
	if msg, mErr := ws.NewEnvelope(ws.TypeRunError, ws.RunErrorPayload{
		RunID: runID,
		Error: err.Error(),
	}); mErr == nil {
		s.hub.Broadcast(msg)
	}
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer s.col.ObserveRequest("/api/runs", r.Method, "200", start)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.runs.Recent())
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer s.col.ObserveRequest("/api/runs/{id}", r.Method, "200", start)

	id := mux.Vars(r)["id"]
	if rec, ok := s.runs.Get(id); ok {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
		return
	}

	if s.repo != nil {
		if runID, err := uuid.Parse(id); err == nil {
			run, err := s.repo.GetRun(r.Context(), runID)
			if err == nil {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(run)
				return
			}
			if !errors.Is(err, repository.ErrNotFound) {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
	}
	http.Error(w, "run not found", http.StatusNotFound)
}

func zoneNames(d *building.Dwelling) []string {
	names := make([]string, len(d.Zones))
	for i, z := range d.Zones {
		names[i] = z.Name
	}
	return names
}
