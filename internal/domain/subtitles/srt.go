package subtitles

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/speakercut/internal/types"
)

const defaultSpeaker = "Speaker 1"

// ParseSRT reads block-format captions. A leading "[label] " in the text is
// taken as the speaker. Blocks that do not parse are skipped.
func ParseSRT(data string) []types.CaptionCue {
	data = strings.TrimPrefix(data, "\ufeff")
	data = strings.ReplaceAll(data, "\r\n", "\n")

	var out []types.CaptionCue
	for _, block := range strings.Split(strings.TrimSpace(data), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		from, to, ok := strings.Cut(lines[1], " --> ")
		if !ok {
			continue
		}
		start, err := parseSRTTime(from)
		if err != nil {
			continue
		}
		end, err := parseSRTTime(to)
		if err != nil {
			continue
		}
		speaker, text := splitSpeaker(strings.Join(lines[2:], "\n"))
		out = append(out, types.CaptionCue{
			Index:   idx,
			Speaker: speaker,
			Start:   start,
			End:     end,
			Text:    text,
		})
	}
	return out
}

func splitSpeaker(text string) (string, string) {
	if strings.HasPrefix(text, "[") {
		if i := strings.Index(text, "] "); i > 0 {
			return text[1:i], strings.TrimSpace(text[i+2:])
		}
	}
	return defaultSpeaker, strings.TrimSpace(text)
}

// WriteSRT renders cues as block format, numbering them from 1.
func WriteSRT(cues []types.CaptionCue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n", i+1, srtTime(c.Start), srtTime(c.End))
		if c.Speaker != "" {
			fmt.Fprintf(&b, "[%s] ", c.Speaker)
		}
		b.WriteString(strings.TrimSpace(c.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

func srtTime(sec float64) string {
	d := dur(sec).Round(time.Millisecond)
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, int(d/time.Millisecond))
}

// parseSRTTime accepts HH:MM:SS,mmm (a '.' separator is tolerated).
func parseSRTTime(s string) (float64, error) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad srt time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad srt hours %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad srt minutes %q: %w", s, err)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("bad srt seconds %q: %w", s, err)
	}
	return float64(h*3600+m*60) + sec, nil
}
