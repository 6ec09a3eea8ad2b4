package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Sternrassler/spoke-connector/internal/version"
	"github.com/Sternrassler/spoke-connector/pkg/client"
	"github.com/Sternrassler/spoke-connector/pkg/config"
	"github.com/Sternrassler/spoke-connector/pkg/graph"
	"github.com/Sternrassler/spoke-connector/pkg/history"
	"github.com/Sternrassler/spoke-connector/pkg/integration"
	"github.com/Sternrassler/spoke-connector/pkg/logging"
	"github.com/Sternrassler/spoke-connector/pkg/metrics"
	"github.com/Sternrassler/spoke-connector/pkg/steps"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// collectOutput is the document written by collect.
type collectOutput struct {
	Entities      []*graph.Entity       `json:"entities"`
	Relationships []*graph.Relationship `json:"relationships"`
	Types         map[string]int        `json:"types"`
	Summary       *integration.Summary  `json:"summary"`
}

func newCollectCmd(a *app) *cobra.Command {
	var output, metricsAddr string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run every ingestion step and write the collected graph as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			logger := logging.NewLogger("collector")

			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, logger)
				defer stop()
			}

			store, closeStore, err := newHistoryStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			return collect(cmd.Context(), cfg, store, out, logger)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON here instead of stdout")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run, e.g. :9090")
	return cmd
}

// collect runs the step graph and writes whatever was collected, also when
// steps failed.
func collect(ctx context.Context, cfg *config.Config, store history.Store, out io.Writer, logger zerolog.Logger) error {
	c, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	executor, err := integration.NewExecutor(steps.All(), store)
	if err != nil {
		return err
	}

	jobState := graph.NewMemoryStore()
	exec := &integration.ExecutionContext{
		Instance:   integration.Instance{ID: cfg.Instance.ID, Name: cfg.Instance.Name},
		Client:     c,
		JobState:   jobState,
		Logger:     logger,
		Lookback:   cfg.Lookback,
		RequestCap: cfg.RequestCap(),
	}

	summary, runErr := executor.Run(ctx, exec)
	if summary == nil {
		return runErr
	}

	doc := collectOutput{
		Entities:      jobState.Entities(),
		Relationships: jobState.Relationships(),
		Types:         jobState.TypeCounts(),
		Summary:       summary,
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Join(runErr, fmt.Errorf("write output: %w", err))
	}

	logger.Info().
		Str("run_id", summary.RunID).
		Int("entities", len(doc.Entities)).
		Int("relationships", len(doc.Relationships)).
		Strs("types", jobState.EncounteredTypes()).
		Msg("Collection written")
	return runErr
}

func newAPIClient(cfg *config.Config) (*client.Client, error) {
	return client.New(client.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		UserAgent:         version.UserAgent(),
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

// newHistoryStore returns a Redis store when redis.addr is set, otherwise an
// in-memory one.
func newHistoryStore(ctx context.Context, cfg *config.Config) (history.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		return history.NewMemoryStore(), func() {}, nil
	}

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return history.NewRedisStore(rdb), func() { rdb.Close() }, nil
}

// openRedis connects to the configured Redis and checks it answers.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	return rdb, nil
}

// serveMetrics starts the metrics endpoint and returns a function that stops it.
func serveMetrics(addr string, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
