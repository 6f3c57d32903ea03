package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/speakercut/internal/jobs"
	"github.com/forPelevin/speakercut/internal/logging"
	"github.com/forPelevin/speakercut/internal/pipeline"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued generate and resync jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, opts)
		},
	}
	cmd.Flags().Int("concurrency", 0, "Parallel jobs (default from config)")
	return cmd
}

func runWorker(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts, map[string]string{"concurrency": "redis.concurrency"})
	if err != nil {
		return err
	}
	log := logging.WithComponent("worker")

	store, rdb := newRedisStore(cfg)
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}

	svc, err := pipeline.New(cfg.Pipeline(), logging.NewLogger())
	if err != nil {
		return err
	}

	cleaner := jobs.NewCleaner(pipeline.RunsDir(cfg.CacheDir), cfg.Cleaner.CleanupAfter, logging.WithComponent("cleaner"))
	if err := cleaner.Start(cfg.Cleaner.Schedule); err != nil {
		return fmt.Errorf("cleaner schedule: %w", err)
	}
	defer cleaner.Stop()

	q := jobs.NewQueue(cfg.Redis.Addr, cfg.Redis.Concurrency, logging.WithComponent("queue"))
	q.Register(jobs.NewHandlers(svc, store, log))
	log.Info().Str("redis", cfg.Redis.Addr).Int("concurrency", cfg.Redis.Concurrency).Msg("worker ready")
	return q.Run()
}
