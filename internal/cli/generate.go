package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/speakercut/internal/jobs"
	"github.com/forPelevin/speakercut/internal/logging"
	"github.com/forPelevin/speakercut/internal/pipeline"
)

var generateFlagKeys = map[string]string{
	"out":       "out_dir",
	"keep-work": "clip.keep_work",
	"window":    "clip.analysis_window",
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <video>",
		Short: "Cut one vertical clip that follows the active speaker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.Float64("start", 0, "Clip start in seconds (default: picked from the transcript)")
	f.Float64("duration", 0, "Clip length in seconds (default from config)")
	f.String("out", "", "Output directory")
	f.Bool("no-burn", false, "Skip burning captions into the clip")
	f.Bool("keep-work", false, "Keep the run work directory")
	f.Float64("window", 0, "Face analysis window in seconds")
	f.Bool("enqueue", false, "Queue the job for a worker instead of running it")
	addStyleFlags(cmd)
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *rootOptions, input string) error {
	cfg, err := loadConfig(cmd, opts, generateFlagKeys, styleFlagKeys)
	if err != nil {
		return err
	}
	// --no-burn is the negation of clip.burn_captions.
	if cmd.Flags().Changed("no-burn") {
		noBurn, _ := cmd.Flags().GetBool("no-burn")
		cfg.Clip.BurnCaptions = !noBurn
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	req := pipeline.GenerateRequest{VideoPath: absIn}
	if cmd.Flags().Changed("start") {
		start, _ := cmd.Flags().GetFloat64("start")
		req.Start = &start
	}
	req.Duration, _ = cmd.Flags().GetFloat64("duration")

	log := logging.WithComponent("cli")

	if enqueue, _ := cmd.Flags().GetBool("enqueue"); enqueue {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		store, rdb := newRedisStore(cfg)
		defer rdb.Close()
		q := jobs.NewQueue(cfg.Redis.Addr, cfg.Redis.Concurrency, logging.WithComponent("queue"))
		defer q.Close()
		id, err := jobs.NewProducer(q, store).EnqueueGenerate(ctx, req)
		if err != nil {
			return err
		}
		log.Info().Str("job_id", id).Msg("generate queued")
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()

	svc, err := pipeline.New(cfg.Pipeline(), logging.NewLogger())
	if err != nil {
		return err
	}
	art, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}
	log.Info().
		Str("clip", art.Path).
		Int("speakers", art.SpeakersDetected).
		Bool("degraded", art.Degraded).
		Msg("clip ready")
	return printJSON(cmd.OutOrStdout(), art)
}
