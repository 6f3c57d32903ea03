package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/speakercut/internal/domain/subtitles"
	"github.com/forPelevin/speakercut/internal/jobs"
	"github.com/forPelevin/speakercut/internal/logging"
	"github.com/forPelevin/speakercut/internal/pipeline"
	"github.com/forPelevin/speakercut/internal/types"
)

func newResyncCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resync <clip.json>",
		Short: "Re-time edited captions onto a clip and burn them in again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResync(cmd, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.String("captions", "", "Edited captions (.json cue list, .srt or .ass)")
	f.Float64("duration", 0, "Target caption span in seconds (default: clip duration)")
	f.Bool("enqueue", false, "Queue the job for a worker instead of running it")
	_ = cmd.MarkFlagRequired("captions")
	addStyleFlags(cmd)
	return cmd
}

func runResync(cmd *cobra.Command, opts *rootOptions, artifactPath string) error {
	cfg, err := loadConfig(cmd, opts, styleFlagKeys)
	if err != nil {
		return err
	}
	art, err := pipeline.LoadArtifact(artifactPath)
	if err != nil {
		return err
	}
	capPath, _ := cmd.Flags().GetString("captions")
	edited, err := loadEditedCaptions(capPath)
	if err != nil {
		return err
	}
	target, _ := cmd.Flags().GetFloat64("duration")
	req := pipeline.ResyncRequest{
		Artifact:       art,
		Edited:         edited,
		TargetDuration: target,
		Style:          cfg.Style,
	}
	log := logging.WithComponent("cli")

	if enqueue, _ := cmd.Flags().GetBool("enqueue"); enqueue {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		store, rdb := newRedisStore(cfg)
		defer rdb.Close()
		q := jobs.NewQueue(cfg.Redis.Addr, cfg.Redis.Concurrency, logging.WithComponent("queue"))
		defer q.Close()
		id, err := jobs.NewProducer(q, store).EnqueueResync(ctx, req)
		if err != nil {
			return err
		}
		log.Info().Str("job_id", id).Msg("resync queued")
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	svc, err := pipeline.New(cfg.Pipeline(), logging.NewLogger())
	if err != nil {
		return err
	}
	out, err := svc.Resync(ctx, req)
	if err != nil {
		return err
	}
	log.Info().Str("clip", out.Path).Int("cues", len(out.Captions)).Bool("degraded", out.Degraded).Msg("captions resynced")
	return printJSON(cmd.OutOrStdout(), out)
}

// loadEditedCaptions accepts a JSON cue list or a subtitle file.
func loadEditedCaptions(path string) ([]types.CaptionCue, error) {
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return subtitles.ParseFile(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	var cues []types.CaptionCue
	if err := json.Unmarshal(b, &cues); err != nil {
		return nil, fmt.Errorf("decode captions %s: %w", path, err)
	}
	return cues, nil
}
