package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/domain/faces"
	"github.com/forPelevin/speakercut/internal/domain/highlights"
	"github.com/forPelevin/speakercut/internal/domain/sampling"
	"github.com/forPelevin/speakercut/internal/domain/schedule"
	"github.com/forPelevin/speakercut/internal/domain/speakers"
	"github.com/forPelevin/speakercut/internal/domain/subtitles"
	"github.com/forPelevin/speakercut/internal/types"
)

// Fallback reasons recorded on the artifact.
const (
	FallbackMomentHeuristic = "moment_heuristic"
	FallbackMomentStrategic = "moment_strategic"
	FallbackTranscribe      = "transcribe_failed"
	FallbackInvalidFrame    = "invalid_frame_default_speaker"
	FallbackNoFaces         = "no_faces_default_speaker"
	FallbackRender          = "single_crop_render"
	FallbackCaptionBurn     = "caption_burn_failed"
)

// unknownSpeakers is the speaker estimate used when transcription failed.
const unknownSpeakers = 2

type GenerateInput struct {
	RunID     string
	VideoPath string
	// Start nil lets the moment picker choose.
	Start    *float64
	Duration float64
	// WorkDir holds every intermediate file of this run.
	WorkDir string
	// OutPath is the final captioned clip.
	OutPath string
	// AnalysisWindow limits how much of the clip transcript feeds the speaker
	// estimate. Zero uses the whole clip.
	AnalysisWindow float64
	BurnCaptions   bool
	Style          types.StyleOptions
}

func (u Usecase) Generate(ctx context.Context, in GenerateInput) (types.ClipArtifact, error) {
	log := u.d.Log.With().Str("run_id", in.RunID).Logger()
	art := types.ClipArtifact{
		RunID:     in.RunID,
		Source:    in.VideoPath,
		CreatedAt: u.d.Now(),
	}
	if in.Duration <= 0 {
		return art, fmt.Errorf("duration must be > 0, got %v", in.Duration)
	}

	info, err := u.d.Video.Probe(ctx, in.VideoPath)
	if err != nil {
		return art, fmt.Errorf("probe source: %w", err)
	}
	log.Info().
		Int("width", info.Width).
		Int("height", info.Height).
		Dur("duration", info.Duration).
		Msg("source probed")

	start, err := u.resolveStart(ctx, log, &art, in, info)
	if err != nil {
		return art, err
	}
	clipLen := in.Duration
	if src := info.Duration.Seconds(); src > 0 && start+clipLen > src {
		clipLen = src - start
	}
	if clipLen <= 0 {
		return art, fmt.Errorf("start %.3fs is past the end of the source (%s)", start, info.Duration)
	}
	art.StartSec = start
	art.Duration = clipLen

	tr, transcribed := u.transcribeClip(ctx, log, &art, in, start, clipLen)
	if err := ctx.Err(); err != nil {
		return art, err
	}

	estimated := unknownSpeakers
	mode := faces.ModePlain
	if transcribed {
		window := clipLen
		if in.AnalysisWindow > 0 && in.AnalysisWindow < clipLen {
			window = in.AnalysisWindow
		}
		estimated = sampling.EstimateSpeakers(tr.Slice(0, window).Segments)
		mode = faces.ModeFor(estimated)
	}
	log.Info().Int("estimated_speakers", estimated).Str("mode", mode.String()).Msg("speaker estimate")

	spk, err := u.findSpeakers(ctx, log, &art, in, info, start, clipLen, estimated, mode, transcribed)
	if err != nil {
		return art, err
	}
	art.SpeakersDetected = len(spk)
	art.DynamicCropping = len(spk) > 1

	segs := schedule.Build(clipLen, len(spk))
	art.Segments = segs
	log.Info().Int("speakers", len(spk)).Int("segments", len(segs)).Msg("schedule built")

	base := BasePathFor(in.OutPath)
	if err := os.MkdirAll(filepath.Dir(in.OutPath), 0o755); err != nil {
		return art, err
	}
	if err := u.assemble(ctx, log, in.RunID, in.WorkDir, in.VideoPath, start, segs, spk, base); err != nil {
		if ctx.Err() != nil {
			return art, err
		}
		degrade(log, &art, FallbackRender, err)
		if ferr := u.renderSingle(ctx, in.VideoPath, start, clipLen, spk[0].CropZone, base); ferr != nil {
			return art, fmt.Errorf("assemble clip: %w", errors.Join(err, ferr))
		}
	}
	art.BasePath = base
	art.Path = in.OutPath

	cues := subtitles.CuesFromTranscript(tr.Slice(0, clipLen))
	art.Captions = cues
	if len(cues) > 0 {
		art.SubtitlePath = strings.TrimSuffix(in.OutPath, filepath.Ext(in.OutPath)) + ".srt"
		if err := os.WriteFile(art.SubtitlePath, []byte(subtitles.WriteSRT(cues)), 0o644); err != nil {
			return art, fmt.Errorf("write subtitles: %w", err)
		}
	}

	burned := false
	if in.BurnCaptions && len(cues) > 0 {
		assPath := filepath.Join(in.WorkDir, in.RunID+"-captions.ass")
		ass := subtitles.RenderKaraoke(tr.Slice(0, clipLen), dur(clipLen), in.Style)
		err := os.WriteFile(assPath, []byte(ass), 0o644)
		if err == nil {
			err = u.d.Video.BurnSubtitles(ctx, base, assPath, in.OutPath)
		}
		if err != nil {
			if ctx.Err() != nil {
				return art, err
			}
			degrade(log, &art, FallbackCaptionBurn, err)
		} else {
			burned = true
		}
	}
	if !burned {
		if err := copyFile(base, in.OutPath); err != nil {
			return art, fmt.Errorf("publish clip: %w", err)
		}
	}

	log.Info().
		Str("path", art.Path).
		Int("speakers", art.SpeakersDetected).
		Bool("dynamic_cropping", art.DynamicCropping).
		Bool("degraded", art.Degraded).
		Msg("clip generated")
	return art, nil
}

func (u Usecase) resolveStart(
	ctx context.Context,
	log zerolog.Logger,
	art *types.ClipArtifact,
	in GenerateInput,
	info types.MediaInfo,
) (float64, error) {
	if in.Start != nil {
		return max(*in.Start, 0), nil
	}
	clipLen := dur(in.Duration)

	wav := filepath.Join(in.WorkDir, in.RunID+"-full.wav")
	var tr types.Transcript
	err := u.d.Video.ExtractAudioMono16k(ctx, in.VideoPath, 0, 0, wav)
	if err == nil {
		tr, err = u.d.ASR.Transcribe(ctx, wav, in.WorkDir)
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	cands := highlights.BuildWindows(tr, clipLen)
	if err != nil || len(cands) == 0 {
		degrade(log, art, FallbackMomentStrategic, err)
		return highlights.StrategicStart(info.Duration, clipLen).Seconds(), nil
	}

	if u.d.Picker != nil {
		c, perr := u.d.Picker.Pick(ctx, tr, cands, clipLen)
		if perr == nil {
			log.Info().Float64("start", c.Start.Seconds()).Msg("moment picked by model")
			return c.Start.Seconds(), nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		degrade(log, art, FallbackMomentHeuristic, perr)
	}
	best, _ := highlights.Best(cands)
	log.Info().Float64("start", best.Start.Seconds()).Msg("moment picked by heuristic")
	return best.Start.Seconds(), nil
}

func (u Usecase) transcribeClip(
	ctx context.Context,
	log zerolog.Logger,
	art *types.ClipArtifact,
	in GenerateInput,
	start, clipLen float64,
) (types.Transcript, bool) {
	wav := filepath.Join(in.WorkDir, in.RunID+"-clip.wav")
	err := u.d.Video.ExtractAudioMono16k(ctx, in.VideoPath, start, clipLen, wav)
	var tr types.Transcript
	if err == nil {
		tr, err = u.d.ASR.Transcribe(ctx, wav, in.WorkDir)
	}
	if err != nil {
		if ctx.Err() == nil {
			degrade(log, art, FallbackTranscribe, err)
		}
		return types.Transcript{}, false
	}
	return tr, true
}

func (u Usecase) findSpeakers(
	ctx context.Context,
	log zerolog.Logger,
	art *types.ClipArtifact,
	in GenerateInput,
	info types.MediaInfo,
	start, clipLen float64,
	estimated int,
	mode faces.Mode,
	transcribed bool,
) ([]types.Speaker, error) {
	offsets := sampling.Plan(clipLen, estimated, u.d.Rand)
	dets, err := u.detector.Detect(ctx, in.VideoPath, info.Width, info.Height, offsets, start, mode)
	if errors.Is(err, faces.ErrInvalidFrame) {
		degrade(log, art, FallbackInvalidFrame, err)
		return speakers.DefaultSpeakers(0, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	spk := speakers.Cluster(dets, info.Width, info.Height)
	if transcribed && len(spk) < estimated {
		log.Info().
			Int("found", len(spk)).
			Int("expected", estimated).
			Msg("speaker shortfall, retrying with enhanced detection")
		more, err := u.detector.Detect(ctx, in.VideoPath, info.Width, info.Height, offsets, start, faces.ModeEnhanced)
		if err != nil {
			return nil, fmt.Errorf("detect faces: %w", err)
		}
		if len(more) > 0 {
			if retried := speakers.Cluster(more, info.Width, info.Height); len(retried) > len(spk) {
				spk, dets = retried, more
			}
		}
	}
	if len(dets) == 0 {
		degrade(log, art, FallbackNoFaces, nil)
	}
	for _, s := range spk {
		log.Debug().
			Int("speaker", s.ID).
			Str("position", s.Position).
			Int("crop_x", s.CropZone.X).
			Msg("speaker")
	}
	return spk, nil
}

// BasePathFor is where the caption-free render of a clip lives.
func BasePathFor(clipPath string) string {
	ext := filepath.Ext(clipPath)
	return strings.TrimSuffix(clipPath, ext) + "_no_captions" + ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
