package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/grant-seeker/internal/model"
	"github.com/sells-group/grant-seeker/internal/pipeline"
)

var servePort int

// searchRequest is the body of POST /v1/search.
type searchRequest struct {
	Query       string        `json:"query" validate:"required_without=Description,max=500"`
	Description string        `json:"description" validate:"max=4000"`
	TargetCount int           `json:"target_count" validate:"gte=0,lte=50"`
	MaxAttempts int           `json:"max_attempts" validate:"gte=0,lte=5"`
	Filters     model.Filters `json:"filters"`
}

// searchResponse is returned by POST /v1/search.
type searchResponse struct {
	ID       string                `json:"id"`
	Query    string                `json:"query"`
	Records  []model.Record        `json:"records"`
	Attempts []model.SearchAttempt `json:"attempts"`
	Usage    model.Usage           `json:"usage"`
	Partial  bool                  `json:"partial,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// searchRunner runs one search request.
type searchRunner interface {
	Search(ctx context.Context, req searchRequest) (*model.Result, error)
}

type envRunner struct {
	env *searchEnv
}

func (r envRunner) Search(ctx context.Context, req searchRequest) (*model.Result, error) {
	orch, tracker := r.env.newRun()

	query := req.Query
	if query == "" {
		query = pipeline.GenerateQuery(ctx, r.env.queryGenerator(tracker), req.Description)
	}
	target, attempts := req.TargetCount, req.MaxAttempts
	if target == 0 {
		target = r.env.cfg.Refine.TargetCount
	}
	if attempts == 0 {
		attempts = r.env.cfg.Refine.MaxAttempts
	}
	return orch.Run(ctx, query, target, attempts, pipeline.WithFilters(req.Filters))
}

// newRouter builds the HTTP API.
func newRouter(runner searchRunner, timeout time.Duration, origins []string) http.Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/search", func(w http.ResponseWriter, req *http.Request) {
		var body searchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		id := uuid.NewString()
		log := zap.L().With(zap.String("search_id", id), zap.String("request_id", middleware.GetReqID(req.Context())))

		result, err := runner.Search(req.Context(), body)
		if err != nil && result == nil {
			status := http.StatusInternalServerError
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			log.Warn("search request failed", zap.Error(err))
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		resp := searchResponse{
			ID:       id,
			Query:    result.Query,
			Records:  nonNil(result.Records),
			Attempts: result.Attempts,
			Usage:    result.Usage,
		}
		// A cancelled run still carries the records found so far.
		if err != nil {
			log.Warn("search request cut short", zap.Int("records", len(result.Records)), zap.Error(err))
			resp.Partial = true
			resp.Error = err.Error()
		} else {
			log.Info("search request complete",
				zap.String("query", result.Query),
				zap.Int("records", len(result.Records)),
			)
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func nonNil(records []model.Record) []model.Record {
	if records == nil {
		return []model.Record{}
	}
	return records
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the search HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initSearchEnv(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		timeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(envRunner{env: env}, timeout, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
