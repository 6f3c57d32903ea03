package highlights

import (
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/speakercut/internal/types"
)

// maxWindows bounds how many windows are handed to ranking.
const maxWindows = 200

// BuildWindows creates one fixed-length window per segment start. Windows
// that would run past the end of the transcript are dropped, except that a
// transcript shorter than clipLen yields a single window at zero.
func BuildWindows(tr types.Transcript, clipLen time.Duration) []types.Candidate {
	if clipLen <= 0 || len(tr.Segments) == 0 {
		return nil
	}
	last := dur(tr.Segments[len(tr.Segments)-1].End)

	var out []types.Candidate
	for _, s := range tr.Segments {
		start := dur(s.Start)
		end := start + clipLen
		if end > last {
			break
		}
		out = append(out, window(tr, start, end))
	}
	if len(out) == 0 {
		out = append(out, window(tr, 0, clipLen))
	}
	if len(out) > maxWindows {
		out = Top(out, maxWindows)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	}
	return out
}

func window(tr types.Transcript, start, end time.Duration) types.Candidate {
	var parts []string
	for _, s := range tr.Segments {
		if dur(s.End) <= start || dur(s.Start) >= end {
			continue
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.Join(parts, " ")
	info, hook := Score(text)
	return types.Candidate{Start: start, End: end, Text: text, InfoScore: info, HookScore: hook}
}

// Top returns the n best windows by combined score; earlier windows win ties.
func Top(cands []types.Candidate, n int) []types.Candidate {
	out := append([]types.Candidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InfoScore+out[i].HookScore > out[j].InfoScore+out[j].HookScore
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Best is the single highest-scoring window.
func Best(cands []types.Candidate) (types.Candidate, bool) {
	top := Top(cands, 1)
	if len(top) == 0 {
		return types.Candidate{}, false
	}
	return top[0], true
}

// StrategicStart picks the first fixed offset at which a clip of clipLen still
// fits in the source. Zero when none fits.
func StrategicStart(source, clipLen time.Duration) time.Duration {
	for _, sec := range []int{180, 300, 420, 600, 900} {
		t := time.Duration(sec) * time.Second
		if t+clipLen <= source {
			return t
		}
	}
	return 0
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
