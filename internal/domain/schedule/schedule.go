package schedule

import (
	"math"

	"github.com/forPelevin/speakercut/internal/types"
)

const (
	twoSpeakerBase   = 6.0
	multiSpeakerBase = 4.0

	// A tail this short is folded back into the full segments instead of
	// becoming its own sub-second cut.
	maxTail = 1.0
)

// Durations splits total into cut lengths for the given speaker count.
func Durations(total float64, speakers int) []float64 {
	if total <= 0 {
		return nil
	}
	if speakers <= 1 {
		return []float64{total}
	}
	base := multiSpeakerBase
	if speakers == 2 {
		base = twoSpeakerBase
	}

	full := int(math.Floor(total / base))
	if full == 0 {
		return []float64{total}
	}
	rem := total - float64(full)*base
	out := make([]float64, 0, full+1)
	if rem <= maxTail {
		each := total / float64(full)
		for i := 0; i < full; i++ {
			out = append(out, each)
		}
		return out
	}
	for i := 0; i < full; i++ {
		out = append(out, base)
	}
	return append(out, rem)
}

// SpeakerFor returns the speaker index for cut i. The primary speaker opens
// and returns every third cut; the rest rotate through the others.
func SpeakerFor(i, speakers int) int {
	if speakers <= 1 || i%3 == 0 {
		return 0
	}
	idx := (i/3)%(speakers-1) + 1
	return min(idx, speakers-1)
}

// Build lays out ordered segments covering [0, total) exactly.
func Build(total float64, speakers int) []types.ScheduledSegment {
	durs := Durations(total, speakers)
	out := make([]types.ScheduledSegment, 0, len(durs))
	at := 0.0
	for i, d := range durs {
		if i == len(durs)-1 {
			// absorb float drift so the cuts sum to total
			d = total - at
		}
		out = append(out, types.ScheduledSegment{
			Start:     at,
			Duration:  d,
			SpeakerID: SpeakerFor(i, speakers),
		})
		at += d
	}
	return out
}
