package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/speakercut/internal/types"
)

const (
	karaokeStyle = "Karaoke"
	styleFormat  = "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n"
	eventFormat  = "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"

	lineCharBudget = 42
	lineWordBudget = 9
)

// RenderKaraoke renders a clip-local transcript as word-highlighted ASS lines.
// Without word timestamps it falls back to one plain line spanning the clip.
func RenderKaraoke(tr types.Transcript, clipLen time.Duration, style types.StyleOptions) string {
	words := collectWords(tr, clipLen)
	if len(words) == 0 {
		return renderPlain(collectSegmentText(tr, clipLen), clipLen, style)
	}
	return renderKaraokeLines(packWords(words), style)
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

func collectWords(tr types.Transcript, clipLen time.Duration) []wword {
	var out []wword
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			ws, we := dur(w.Start), dur(w.End)
			if we <= 0 || ws >= clipLen {
				continue
			}
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			out = append(out, wword{Start: max(ws, 0), End: min(we, clipLen), Text: sanitizeASS(text)})
		}
	}
	return out
}

func collectSegmentText(tr types.Transcript, clipLen time.Duration) string {
	var parts []string
	for _, s := range tr.Segments {
		if dur(s.End) <= 0 || dur(s.Start) >= clipLen {
			continue
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) >= lineWordBudget || nextLen > lineCharBudget {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func renderKaraokeLines(lines []line, style types.StyleOptions) string {
	var b strings.Builder
	writeKaraokeHeader(&b, style)
	for _, ln := range lines {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,", assTime(ln.Start), assTime(ln.End), karaokeStyle)
		for _, w := range ln.Words {
			cs := int((w.End - w.Start) / (10 * time.Millisecond))
			if cs < 1 {
				cs = 1
			}
			fmt.Fprintf(&b, "{\\k%d}%s ", cs, w.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderPlain(text string, clipLen time.Duration, style types.StyleOptions) string {
	var b strings.Builder
	writeKaraokeHeader(&b, style)
	fmt.Fprintf(&b, "Dialogue: 0,0:00:00.00,%s,%s,,0,0,0,,%s\n", assTime(clipLen), karaokeStyle, sanitizeASS(text))
	return b.String()
}

func writeKaraokeHeader(b *strings.Builder, style types.StyleOptions) {
	b.WriteString(scriptInfo())
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString(styleFormat)
	b.WriteString(styleLine(karaokeStyle, style, "#FFFFFF"))
	b.WriteString("\n[Events]\n")
	b.WriteString(eventFormat)
}

func scriptInfo() string {
	return fmt.Sprintf("[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nScaledBorderAndShadow: yes\n",
		types.TargetWidth, types.TargetHeight)
}

func assTime(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
