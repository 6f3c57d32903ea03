package subtitles

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/forPelevin/speakercut/internal/types"
)

// ParseFile loads cues from an .srt or .ass file, chosen by extension.
func ParseFile(path string) ([]types.CaptionCue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return ParseSRT(string(data)), nil
	case ".ass", ".ssa":
		return ParseASS(string(data)), nil
	default:
		return nil, fmt.Errorf("unsupported subtitle format %q", filepath.Ext(path))
	}
}

// CuesFromTranscript turns clip-local transcript segments into cues ordered by
// strictly increasing start. Segments starting at or before the previous cue
// are merged into it.
func CuesFromTranscript(tr types.Transcript) []types.CaptionCue {
	segs := slices.Clone(tr.Segments)
	slices.SortStableFunc(segs, func(a, b types.Segment) int { return cmp.Compare(a.Start, b.Start) })

	var out []types.CaptionCue
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.End <= s.Start {
			continue
		}
		if n := len(out); n > 0 && s.Start <= out[n-1].Start {
			out[n-1].Text += " " + text
			out[n-1].End = max(out[n-1].End, s.End)
			continue
		}
		out = append(out, types.CaptionCue{
			Index: len(out) + 1,
			Start: s.Start,
			End:   s.End,
			Text:  text,
		})
	}
	return out
}
