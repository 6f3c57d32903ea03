package faces

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/types"
)

var ErrInvalidFrame = errors.New("invalid frame dimensions")

// overlapIoU above which a box is the same face seen by another pass.
const overlapIoU = 0.5

type Finder interface {
	Find(img image.Image, p Pass) ([]types.FaceDetection, error)
}

type FrameSource interface {
	Frame(ctx context.Context, path string, at float64) (image.Image, error)
}

type Detector struct {
	finder Finder
	frames FrameSource
	log    zerolog.Logger
}

func NewDetector(finder Finder, frames FrameSource, log zerolog.Logger) *Detector {
	return &Detector{finder: finder, frames: frames, log: log}
}

// Detect samples frames of path at start+offset for each offset and returns
// every filtered face, tagged with the offset it came from. Frames that fail
// to decode are skipped.
func (d *Detector) Detect(
	ctx context.Context,
	path string,
	width, height int,
	offsets []float64,
	start float64,
	mode Mode,
) ([]types.FaceDetection, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("detect faces %dx%d: %w", width, height, ErrInvalidFrame)
	}

	var out []types.FaceDetection
	decoded := 0
	for _, off := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := d.frames.Frame(ctx, path, start+off)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.log.Debug().Err(err).Float64("offset", off).Msg("skip frame")
			continue
		}
		decoded++
		for _, f := range d.detectFrame(img, width, height, mode) {
			f.FrameOffset = off
			out = append(out, f)
		}
	}

	d.log.Debug().
		Str("mode", mode.String()).
		Int("frames", decoded).
		Int("faces", len(out)).
		Msg("face detection done")
	return out, nil
}

func (d *Detector) detectFrame(img image.Image, width, height int, mode Mode) []types.FaceDetection {
	filter := FilterFor(mode)
	var kept []types.FaceDetection
	for _, p := range PassesFor(mode) {
		found, err := d.finder.Find(img, p)
		if err != nil {
			d.log.Debug().Err(err).Str("cascade", string(p.Cascade)).Msg("detection pass failed")
			continue
		}
		hit := false
		for _, f := range found {
			if !filter.Keep(f, width, height) || overlapsAny(f, kept) {
				continue
			}
			kept = append(kept, f)
			hit = true
		}
		if hit && !mode.Accumulates() {
			break
		}
	}
	return kept
}

func overlapsAny(f types.FaceDetection, seen []types.FaceDetection) bool {
	for _, s := range seen {
		if IoU(f, s) > overlapIoU {
			return true
		}
	}
	return false
}

// IoU is the intersection-over-union of two boxes.
func IoU(a, b types.FaceDetection) float64 {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.X+a.W, b.X+b.W), min(a.Y+a.H, b.Y+b.H)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	inter := (x1 - x0) * (y1 - y0)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
