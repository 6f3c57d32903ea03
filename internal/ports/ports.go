package ports

import (
	"context"
	"image"
	"time"

	"github.com/forPelevin/speakercut/internal/domain/faces"
	"github.com/forPelevin/speakercut/internal/types"
)

// VideoTool wraps the native encoder. All times are seconds; a duration <= 0
// means "until the end of the input".
type VideoTool interface {
	Probe(ctx context.Context, path string) (types.MediaInfo, error)
	ExtractAudioMono16k(ctx context.Context, in string, start, duration float64, outWav string) error
	Frame(ctx context.Context, path string, at float64) (image.Image, error)
	RenderCrop(ctx context.Context, in string, start, duration float64, crop types.Rect, out string) error
	Concat(ctx context.Context, inputs []string, manifest, out string) error
	BurnSubtitles(ctx context.Context, in, subtitles, out string) error
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

type FaceFinder interface {
	Find(img image.Image, p faces.Pass) ([]types.FaceDetection, error)
}

type MomentPicker interface {
	Pick(ctx context.Context, tr types.Transcript, cands []types.Candidate, clipLen time.Duration) (types.Candidate, error)
}
