package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/ports"
	"github.com/forPelevin/speakercut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/speakercut/internal/ports/adapters/openrouter"
	pigoadapter "github.com/forPelevin/speakercut/internal/ports/adapters/pigo"
	"github.com/forPelevin/speakercut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/speakercut/internal/types"
	"github.com/forPelevin/speakercut/internal/usecase"
)

const defaultClipSeconds = 30

type Config struct {
	// CacheDir is the base directory for run work files. Defaults to ".cache".
	CacheDir string
	OutDir   string

	DefaultDuration float64
	AnalysisWindow  float64
	BurnCaptions    bool
	// KeepWork leaves the run work directory behind after a successful run.
	KeepWork bool
	Style    types.StyleOptions

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string

	FrontalCascade string
	ProfileCascade string

	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
}

type GenerateRequest struct {
	VideoPath string   `json:"video_path"`
	Start     *float64 `json:"start,omitempty"`
	Duration  float64  `json:"duration,omitempty"`
	OutDir    string   `json:"out_dir,omitempty"`
}

type ResyncRequest struct {
	Artifact       types.ClipArtifact `json:"artifact"`
	Edited         []types.CaptionCue `json:"edited"`
	TargetDuration float64            `json:"target_duration,omitempty"`
	Style          types.StyleOptions `json:"style"`
}

type Service struct {
	cfg      Config
	uc       usecase.Usecase
	log      zerolog.Logger
	newRunID func() string
	now      func() time.Time
}

// New wires the native adapters described by cfg.
func New(cfg Config, log zerolog.Logger) (*Service, error) {
	faceFinder, err := pigoadapter.New(cfg.FrontalCascade, cfg.ProfileCascade, log.With().Str("component", "pigo").Logger())
	if err != nil {
		return nil, err
	}
	deps := usecase.Deps{
		Video: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, log.With().Str("component", "ffmpeg").Logger()),
		ASR:   whispercpp.New(cfg.WhisperBin, cfg.WhisperModel, log.With().Str("component", "whisper").Logger()),
		Faces: faceFinder,
		Log:   log.With().Str("component", "usecase").Logger(),
	}
	if cfg.OpenRouterAPIKey != "" {
		deps.Picker = openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL,
			log.With().Str("component", "openrouter").Logger())
	}
	return NewWithDeps(cfg, deps, log), nil
}

func NewWithDeps(cfg Config, deps usecase.Deps, log zerolog.Logger) *Service {
	if cfg.CacheDir == "" {
		cfg.CacheDir = ".cache"
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "out"
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = defaultClipSeconds
	}
	cfg.Style = withStyleDefaults(cfg.Style, types.DefaultStyle())
	return &Service{
		cfg:      cfg,
		uc:       usecase.New(deps),
		log:      log,
		newRunID: uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Generate(ctx context.Context, req GenerateRequest) (types.ClipArtifact, error) {
	if req.VideoPath == "" {
		return types.ClipArtifact{}, errors.New("video path is empty")
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return types.ClipArtifact{}, fmt.Errorf("stat input: %w", err)
	}
	d := req.Duration
	if d <= 0 {
		d = s.cfg.DefaultDuration
	}

	runID := s.newRunID()
	log := s.log.With().Str("run_id", runID).Logger()
	workDir := RunDir(s.cfg.CacheDir, runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.ClipArtifact{}, err
	}
	outRoot := req.OutDir
	if outRoot == "" {
		outRoot = s.cfg.OutDir
	}
	runOutDir := buildRunOutDir(outRoot, req.VideoPath, runID, s.now())
	log.Info().Str("work_dir", workDir).Str("out_dir", runOutDir).Msg("run started")

	art, err := s.uc.Generate(ctx, usecase.GenerateInput{
		RunID:          runID,
		VideoPath:      req.VideoPath,
		Start:          req.Start,
		Duration:       d,
		WorkDir:        workDir,
		OutPath:        filepath.Join(runOutDir, "clip.mp4"),
		AnalysisWindow: s.cfg.AnalysisWindow,
		BurnCaptions:   s.cfg.BurnCaptions,
		Style:          s.cfg.Style,
	})
	if err != nil {
		log.Error().Err(err).Str("work_dir", workDir).Msg("run failed")
		return art, err
	}
	if !s.cfg.KeepWork {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn().Err(err).Msg("remove work dir")
		}
	}
	if err := WriteArtifact(ArtifactPath(art.Path), art); err != nil {
		return art, err
	}
	return art, nil
}

func (s *Service) Resync(ctx context.Context, req ResyncRequest) (types.ClipArtifact, error) {
	art, err := s.uc.Resync(ctx, usecase.ResyncInput{
		Artifact:       req.Artifact,
		Edited:         req.Edited,
		TargetDuration: req.TargetDuration,
		Style:          withStyleDefaults(req.Style, s.cfg.Style),
	})
	if err != nil {
		return req.Artifact, err
	}
	if err := WriteArtifact(ArtifactPath(art.Path), art); err != nil {
		return art, err
	}
	return art, nil
}

// RunsDir holds one work directory per run.
func RunsDir(cacheDir string) string { return filepath.Join(cacheDir, "runs") }

func RunDir(cacheDir, runID string) string { return filepath.Join(RunsDir(cacheDir), runID) }

func withStyleDefaults(s, def types.StyleOptions) types.StyleOptions {
	if s.Position == "" {
		s.Position = def.Position
	}
	if s.PositionPercent <= 0 {
		s.PositionPercent = def.PositionPercent
	}
	if len(s.SpeakerColors) == 0 {
		s.SpeakerColors = def.SpeakerColors
	}
	if s.FontName == "" {
		s.FontName = def.FontName
	}
	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	return s
}

func buildRunOutDir(outRoot, inputMP4, runID string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputMP4), filepath.Ext(inputMP4))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	suffix := strings.ReplaceAll(runID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.FaceFinder = (*pigoadapter.Adapter)(nil)
var _ ports.MomentPicker = (*openrouter.Adapter)(nil)
