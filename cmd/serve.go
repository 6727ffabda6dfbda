package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/store"
)

const (
	// maxRequestBytes caps a prospect request body.
	maxRequestBytes = 1 << 20
	shutdownTimeout = 15 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for prospecting requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initPipeline(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env.Pipeline, env.Store),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the API routes. A nil store disables the run endpoints.
func buildRouter(p *prospect.Pipeline, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if p != nil {
			body["breakers"] = p.BreakerStates()
		}
		writeJSONStatus(w, http.StatusOK, body)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/prospect", handleProspect(p))
		r.Get("/runs", handleListRuns(st))
		r.Get("/runs/{id}", handleGetRun(st))
	})
	return r
}

func handleProspect(p *prospect.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
			return
		}
		var req prospect.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := p.Run(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSONStatus(w, http.StatusOK, resp)
	}
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, "run store not configured")
			return
		}
		q := r.URL.Query()
		filter := store.RunFilter{TaskKey: q.Get("task_key")}
		var err error
		if filter.Limit, err = intParam(q.Get("limit")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if filter.Offset, err = intParam(q.Get("offset")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}

		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		out := make([]runSummary, 0, len(runs))
		for _, run := range runs {
			out = append(out, summarize(run))
		}
		writeJSONStatus(w, http.StatusOK, map[string]any{"runs": out})
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, "run store not configured")
			return
		}
		run, err := st.GetRun(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "run not found")
			return
		case err != nil:
			zap.L().Error("get run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get run failed")
			return
		}
		writeJSONStatus(w, http.StatusOK, run)
	}
}

// runSummary is the list view of a stored run.
type runSummary struct {
	ID         string    `json:"id"`
	TaskKey    string    `json:"taskKey"`
	StatusCode string    `json:"statusCode"`
	DedupeKeys int       `json:"dedupeKeys"`
	CreatedAt  time.Time `json:"createdAt"`
}

func summarize(r store.Run) runSummary {
	return runSummary{
		ID:         r.ID,
		TaskKey:    r.TaskKey,
		StatusCode: r.StatusCode,
		DedupeKeys: len(r.DedupeKeys),
		CreatedAt:  r.CreatedAt,
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := writeJSON(w, v, false); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}
