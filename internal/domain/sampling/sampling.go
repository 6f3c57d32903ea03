package sampling

import (
	"math"
	"math/rand"
	"sort"

	"github.com/forPelevin/speakercut/internal/types"
)

const singleSpeakerSamples = 15

// EstimateSpeakers guesses how many people talk from transcript cadence alone.
// Many short segments read as frequent turn-taking; it is a coarse signal that
// only biases how densely frames get sampled.
func EstimateSpeakers(segs []types.Segment) int {
	if len(segs) == 0 {
		return 1
	}
	total := 0.0
	for _, s := range segs {
		total += math.Max(0, s.End-s.Start)
	}
	avg := total / float64(len(segs))

	switch {
	case len(segs) >= 10 && avg < 3.0:
		return 3
	case len(segs) > 3 && avg < 5.0:
		return 2
	default:
		return 1
	}
}

// SampleCount is how many frames Plan returns for an estimated speaker count.
func SampleCount(speakers int) int {
	if speakers <= 1 {
		return singleSpeakerSamples
	}
	return min(30, max(20, speakers*10))
}

// Plan returns sorted time offsets in [0, duration) to probe for faces.
func Plan(duration float64, speakers int, rng *rand.Rand) []float64 {
	if duration <= 0 {
		return []float64{0}
	}
	if speakers <= 1 {
		out := make([]float64, 0, singleSpeakerSamples)
		for i := 0; i < singleSpeakerSamples; i++ {
			out = append(out, float64(i)*duration/singleSpeakerSamples)
		}
		return out
	}

	n := SampleCount(speakers)
	turn := 3.0
	if speakers == 2 {
		turn = 5.0
	}

	var pts []float64
	for b := 0.0; b < duration; b += turn {
		for _, off := range []float64{-0.5, 0, 0.5} {
			t := b + off
			if t >= 0 && t < duration {
				pts = append(pts, t)
			}
		}
	}
	// Random probes catch transitions the fixed cadence misses.
	if rng != nil {
		for i := 0; i < speakers*10/4; i++ {
			pts = append(pts, rng.Float64()*duration)
		}
	}

	pts = dedupe(pts)
	if len(pts) > n {
		pts = pts[:n]
	}
	if len(pts) == 0 {
		return []float64{0}
	}
	return pts
}

func dedupe(pts []float64) []float64 {
	seen := make(map[int64]struct{}, len(pts))
	out := pts[:0]
	for _, p := range pts {
		k := int64(math.Round(p * 1000))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	sort.Float64s(out)
	return out
}
