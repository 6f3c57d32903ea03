package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     zerolog.Logger
}

func New(ffmpegPath, ffprobePath string, log zerolog.Logger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, log: log}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (a *Adapter) Probe(ctx context.Context, path string) (types.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height:format=duration",
		"-of", "json",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, stderrOf(err))
	}
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	var info types.MediaInfo
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Width, info.Height = s.Width, s.Height
			break
		}
	}
	s := strings.TrimSpace(out.Format.Duration)
	if s != "" {
		sec, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.MediaInfo{}, fmt.Errorf("parse duration %q: %w", s, err)
		}
		info.Duration = time.Duration(sec * float64(time.Second))
	}
	return info, nil
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in string, start, duration float64, outWav string) error {
	args := []string{"-y"}
	args = append(args, seekArgs(start, duration)...)
	args = append(args,
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	return a.run(ctx, "extract audio", args)
}

// Frame decodes the single frame at `at` seconds as PNG over a pipe.
func (a *Adapter) Frame(ctx context.Context, path string, at float64) (image.Image, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-v", "error",
		"-ss", fmtSeconds(at),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	)
	b, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame at %s: %w\n%s", fmtSeconds(at), err, stderrOf(err))
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("ffmpeg frame at %s: no data", fmtSeconds(at))
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode frame at %s: %w", fmtSeconds(at), err)
	}
	return img, nil
}

// CropFilter scales the source to cover 1080x1920 and cuts the window at crop.X.
func CropFilter(crop types.Rect) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d:%d:%d",
		types.TargetWidth, types.TargetHeight, types.TargetWidth, types.TargetHeight, crop.X, crop.Y,
	)
}

func (a *Adapter) RenderCrop(ctx context.Context, in string, start, duration float64, crop types.Rect, out string) error {
	args := []string{"-y"}
	args = append(args, seekArgs(start, duration)...)
	args = append(args,
		"-i", in,
		"-vf", CropFilter(crop),
	)
	args = append(args, encodeArgs()...)
	args = append(args, out)
	return a.run(ctx, "render crop", args)
}

// Concat joins inputs without re-encoding through the concat demuxer. The
// manifest is written to the given path and left for the caller to remove.
func (a *Adapter) Concat(ctx context.Context, inputs []string, manifest, out string) error {
	var b strings.Builder
	for _, in := range inputs {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(in, "'", `'\''`))
	}
	if err := os.WriteFile(manifest, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return a.run(ctx, "concat", []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		out,
	})
}

func (a *Adapter) BurnSubtitles(ctx context.Context, in, subtitles, out string) error {
	args := []string{
		"-y",
		"-i", in,
		"-vf", "subtitles=" + escapeFilterPath(subtitles),
	}
	args = append(args, encodeArgs()...)
	args = append(args, out)
	return a.run(ctx, "burn subtitles", args)
}

func (a *Adapter) run(ctx context.Context, op string, args []string) error {
	a.log.Debug().Str("op", op).Strs("args", args).Msg("ffmpeg")
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

func seekArgs(start, duration float64) []string {
	var args []string
	if start > 0 {
		args = append(args, "-ss", fmtSeconds(start))
	}
	if duration > 0 {
		args = append(args, "-t", fmtSeconds(duration))
	}
	return args
}

func encodeArgs() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
	}
}

func stderrOf(err error) string {
	if ee, ok := err.(*exec.ExitError); ok {
		return string(ee.Stderr)
	}
	return ""
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
