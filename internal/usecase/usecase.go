package usecase

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/domain/faces"
	"github.com/forPelevin/speakercut/internal/ports"
	"github.com/forPelevin/speakercut/internal/types"
)

type Deps struct {
	Video ports.VideoTool
	ASR   ports.ASR
	Faces ports.FaceFinder
	// Picker is optional; without it the best heuristic window is used.
	Picker ports.MomentPicker
	Log    zerolog.Logger
	// Rand seeds sample jitter. Nil means time-seeded.
	Rand *rand.Rand
	Now  func() time.Time
}

type Usecase struct {
	d        Deps
	detector *faces.Detector
}

func New(d Deps) Usecase {
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return Usecase{d: d, detector: faces.NewDetector(d.Faces, d.Video, d.Log)}
}

// degrade records a fallback on the artifact. A fallback is never a clean
// success, so it is always logged at warn.
func degrade(log zerolog.Logger, art *types.ClipArtifact, reason string, err error) {
	log.Warn().Err(err).Bool("degraded", true).Str("fallback", reason).Msg("fallback taken")
	art.AddFallback(reason)
}
