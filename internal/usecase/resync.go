package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/speakercut/internal/domain/captions"
	"github.com/forPelevin/speakercut/internal/domain/subtitles"
	"github.com/forPelevin/speakercut/internal/types"
)

const FallbackCaptionsEvenSplit = "captions_even_split"

type ResyncInput struct {
	Artifact types.ClipArtifact
	Edited   []types.CaptionCue
	// TargetDuration <= 0 uses the artifact duration. It never exceeds the
	// clip's own duration.
	TargetDuration float64
	Style          types.StyleOptions
}

// Resync re-times edited captions, burns them onto the caption-free render and
// swaps the results in. On failure the previous clip and subtitles stay as
// they were.
func (u Usecase) Resync(ctx context.Context, in ResyncInput) (types.ClipArtifact, error) {
	art := in.Artifact
	log := u.d.Log.With().Str("run_id", art.RunID).Logger()

	target := in.TargetDuration
	if target <= 0 {
		target = art.Duration
	}
	if art.Duration > 0 && target > art.Duration {
		log.Debug().Float64("requested", target).Float64("clip", art.Duration).Msg("caption target capped to clip duration")
		target = art.Duration
	}

	original, err := subtitles.ParseFile(art.SubtitlePath)
	if err != nil {
		degrade(log, &art, FallbackCaptionsEvenSplit, err)
		original = nil
	}
	synced, err := captions.Sync(original, in.Edited, target)
	if err != nil {
		return in.Artifact, err
	}

	dir := filepath.Dir(art.Path)
	stem := strings.TrimSuffix(filepath.Base(art.Path), filepath.Ext(art.Path))
	assPath := filepath.Join(dir, stem+".ass")

	tmpASS, err := writeTemp(dir, stem+"-*.ass", subtitles.RenderStyledASS(synced, in.Style))
	if err != nil {
		return in.Artifact, fmt.Errorf("write captions: %w", err)
	}
	defer os.Remove(tmpASS)

	tmpVideo, err := writeTemp(dir, stem+"-*.mp4", "")
	if err != nil {
		return in.Artifact, fmt.Errorf("reserve temp clip: %w", err)
	}
	defer os.Remove(tmpVideo)

	base := art.BasePath
	if base == "" || !exists(base) {
		base = art.Path
	}
	if err := u.d.Video.BurnSubtitles(ctx, base, tmpASS, tmpVideo); err != nil {
		return in.Artifact, fmt.Errorf("burn captions: %w", err)
	}
	if err := checkSize(tmpVideo); err != nil {
		return in.Artifact, err
	}

	if err := swapIn(tmpVideo, art.Path, tmpASS, assPath); err != nil {
		return in.Artifact, err
	}

	art.SubtitlePath = assPath
	art.Captions = synced
	art.CaptionUpdates = len(in.Edited)
	art.UpdatedAt = u.d.Now()
	log.Info().
		Int("captions", len(synced)).
		Float64("target", target).
		Bool("degraded", art.Degraded).
		Msg("captions resynced")
	return art, nil
}

// swapIn moves the new clip and captions over the old ones. If the captions
// cannot be moved, the old clip is put back.
func swapIn(newVideo, videoPath, newASS, assPath string) error {
	backup := ""
	if exists(videoPath) {
		backup = videoPath + ".prev"
		if err := os.Rename(videoPath, backup); err != nil {
			return fmt.Errorf("back up clip: %w", err)
		}
	}
	restore := func() {
		if backup != "" {
			_ = os.Rename(backup, videoPath)
		}
	}
	if err := os.Rename(newVideo, videoPath); err != nil {
		restore()
		return fmt.Errorf("replace clip: %w", err)
	}
	if err := os.Rename(newASS, assPath); err != nil {
		_ = os.Remove(videoPath)
		restore()
		return fmt.Errorf("replace captions: %w", err)
	}
	if backup != "" {
		_ = os.Remove(backup)
	}
	return nil
}

func writeTemp(dir, pattern, content string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
