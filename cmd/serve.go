package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pipeline"
	"github.com/sells-group/leadscout/internal/ratelimit"
	"github.com/sells-group/leadscout/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for discovery runs",
	Long: `Starts an HTTP server that accepts discovery run requests, reports
live progress while a run executes, and serves finished run reports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limiter := initLimiter()
		tools, err := initTools(limiter)
		if err != nil {
			return err
		}

		srv := newServer(st, tools, limiter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		srv.wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server holds the shared state behind the HTTP API: the run store, the
// pipeline wiring, and a tracker of live run progress.
type server struct {
	store   store.Store
	tools   pipeline.Tools
	limiter *ratelimit.Limiter

	tracker *progressTracker
	runs    sync.WaitGroup
}

func newServer(st store.Store, tools pipeline.Tools, limiter *ratelimit.Limiter) *server {
	return &server{
		store:   st,
		tools:   tools,
		limiter: limiter,
		tracker: newProgressTracker(),
	}
}

// wait blocks until all in-flight runs finish.
func (s *server) wait() { s.runs.Wait() }

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{runID}", s.handleGetRun)
		r.Get("/{runID}/progress", s.handleRunProgress)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runRequest is the body of POST /runs. Empty fields fall back to the
// configured discovery defaults.
type runRequest struct {
	Market     string   `json:"market"`
	Industries []string `json:"industries"`
	Locations  []string `json:"locations"`
	Limit      int      `json:"limit"`
}

func (s *server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	runCfg := cfg.Discovery
	if req.Market != "" {
		runCfg.Market = req.Market
	}
	if len(req.Industries) > 0 {
		runCfg.Filters.Industries = req.Industries
	}
	if len(req.Locations) > 0 {
		runCfg.Filters.Locations = req.Locations
	}
	if req.Limit > 0 {
		runCfg.MaxProspects = req.Limit
	}
	if len(runCfg.Filters.Industries) == 0 || len(runCfg.Filters.Locations) == 0 {
		writeError(w, http.StatusBadRequest, "industries and locations are required")
		return
	}

	run, err := s.store.CreateRun(r.Context(), runCfg.Market)
	if err != nil {
		zap.L().Error("create run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create run failed")
		return
	}
	if err := s.store.UpdateRunStatus(r.Context(), run.ID, model.RunStatusRunning); err != nil {
		zap.L().Error("mark run running failed", zap.String("run_id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create run failed")
		return
	}

	p := pipeline.New(runCfg, s.limiter, s.tools, pipeline.MultiSink(pipeline.LogSink{}, s.tracker))

	// Run asynchronously; the request context dies with the response.
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.tracker.forget(run.ID)

		ctx := context.Background()
		report, runErr := p.Run(ctx, run.ID)
		if runErr != nil {
			zap.L().Error("run failed",
				zap.String("run_id", run.ID),
				zap.String("status", string(report.Status)),
				zap.Error(runErr),
			)
		}
		if err := s.store.SaveReport(ctx, run.ID, report); err != nil {
			zap.L().Error("save report failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": string(model.RunStatusRunning),
	})
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Market: q.Get("market"),
		Limit:  50,
	}
	if n, err := intQuery(q.Get("limit")); err == nil && n > 0 {
		filter.Limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("get run failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunProgress serves live stage progress for an in-flight run,
// falling back to the stored run for finished ones.
func (s *server) handleRunProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if prog, ok := s.tracker.snapshot(runID); ok {
		writeJSON(w, http.StatusOK, prog)
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("get run failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, runProgress{
		RunID:  run.ID,
		Status: run.Status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
