package captions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/speakercut/internal/types"
)

var ErrNoTarget = errors.New("target duration must be positive")

const DefaultSpeaker = "Speaker 1"

// Sync re-times edited cues so they span exactly [0, target). When the edit
// keeps the cue count and the original timings are usable, the original
// cadence is preserved by scaling its boundaries; otherwise cues are spread
// evenly.
func Sync(original, edited []types.CaptionCue, target float64) ([]types.CaptionCue, error) {
	if target <= 0 {
		return nil, fmt.Errorf("sync captions: %w", ErrNoTarget)
	}
	if len(edited) == 0 {
		return nil, nil
	}

	var bounds []float64
	if len(original) == len(edited) && validTimings(original) {
		bounds = cadenceBounds(original, target)
	} else {
		bounds = EvenBounds(len(edited), target)
	}

	out := make([]types.CaptionCue, len(edited))
	for i, e := range edited {
		speaker := strings.TrimSpace(e.Speaker)
		if speaker == "" && i < len(original) {
			speaker = strings.TrimSpace(original[i].Speaker)
		}
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		out[i] = types.CaptionCue{
			Index:   i + 1,
			Speaker: speaker,
			Start:   bounds[i],
			End:     bounds[i+1],
			Text:    e.Text,
		}
	}
	return out, nil
}

// EvenBounds splits [0, target) into n equal slots and returns n+1 bounds.
func EvenBounds(n int, target float64) []float64 {
	b := make([]float64, n+1)
	for i := 0; i < n; i++ {
		b[i] = float64(i) * target / float64(n)
	}
	b[n] = target
	return b
}

func cadenceBounds(orig []types.CaptionCue, target float64) []float64 {
	n := len(orig)
	span := orig[n-1].End
	scale := target / span
	b := make([]float64, n+1)
	for i := 1; i < n; i++ {
		b[i] = orig[i].Start * scale
	}
	b[n] = target
	return b
}

func validTimings(cues []types.CaptionCue) bool {
	n := len(cues)
	if n == 0 {
		return false
	}
	if cues[n-1].End <= 0 || cues[0].Start < 0 {
		return false
	}
	for i := 1; i < n; i++ {
		if cues[i].Start <= cues[i-1].Start {
			return false
		}
	}
	return cues[n-1].End > cues[n-1].Start
}
