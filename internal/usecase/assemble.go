package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/types"
)

var (
	ErrRender   = errors.New("render failed")
	ErrTooSmall = errors.New("rendered clip too small")
)

// Anything at or below this is treated as a broken encode.
const minOutputBytes = 100 * 1024

// assemble renders one crop per scheduled segment and joins them in order.
// Intermediates are removed whether or not it succeeds.
func (u Usecase) assemble(
	ctx context.Context,
	log zerolog.Logger,
	runID, workDir, src string,
	start float64,
	segs []types.ScheduledSegment,
	spk []types.Speaker,
	out string,
) error {
	if len(segs) == 0 || len(spk) == 0 {
		return fmt.Errorf("%w: nothing to render", ErrRender)
	}
	if len(segs) == 1 {
		seg := segs[0]
		return u.renderSingle(ctx, src, start+seg.Start, seg.Duration, speakerFor(spk, seg.SpeakerID).CropZone, out)
	}

	parts := make([]string, 0, len(segs))
	manifest := filepath.Join(workDir, runID+"-concat.txt")
	defer func() {
		for _, p := range parts {
			_ = os.Remove(p)
		}
		_ = os.Remove(manifest)
	}()

	for i, seg := range segs {
		s := speakerFor(spk, seg.SpeakerID)
		part := filepath.Join(workDir, fmt.Sprintf("%s-seg-%03d.mp4", runID, i))
		parts = append(parts, part)
		log.Debug().
			Int("segment", i).
			Int("speaker", s.ID).
			Float64("start", seg.Start).
			Float64("duration", seg.Duration).
			Msg("render segment")
		if err := u.d.Video.RenderCrop(ctx, src, start+seg.Start, seg.Duration, s.CropZone, part); err != nil {
			return fmt.Errorf("%w: segment %d: %w", ErrRender, i, err)
		}
	}
	if err := u.d.Video.Concat(ctx, parts, manifest, out); err != nil {
		return fmt.Errorf("%w: concat: %w", ErrRender, err)
	}
	return checkSize(out)
}

func (u Usecase) renderSingle(ctx context.Context, src string, start, duration float64, crop types.Rect, out string) error {
	if err := u.d.Video.RenderCrop(ctx, src, start, duration, crop, out); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return checkSize(out)
}

func checkSize(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if st.Size() <= minOutputBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrTooSmall, filepath.Base(path), st.Size())
	}
	return nil
}

// speakerFor maps a schedule slot to a speaker, falling back to the primary one.
func speakerFor(spk []types.Speaker, id int) types.Speaker {
	for _, s := range spk {
		if s.ID == id {
			return s
		}
	}
	return spk[0]
}
