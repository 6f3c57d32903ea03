package subtitles

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/forPelevin/speakercut/internal/types"
)

var overrideTags = regexp.MustCompile(`\{[^}]*\}`)

// ParseASS reads the Dialogue lines of an ASS script. The fourth field (the
// style column) is read as the speaker label, which matches what
// RenderStyledASS writes.
func ParseASS(data string) []types.CaptionCue {
	data = strings.TrimPrefix(data, "\ufeff")
	var out []types.CaptionCue
	for _, ln := range strings.Split(data, "\n") {
		ln = strings.TrimSpace(ln)
		rest, ok := strings.CutPrefix(ln, "Dialogue:")
		if !ok {
			continue
		}
		fields := strings.SplitN(rest, ",", 10)
		if len(fields) < 10 {
			continue
		}
		start, err := parseASSTime(fields[1])
		if err != nil {
			continue
		}
		end, err := parseASSTime(fields[2])
		if err != nil {
			continue
		}
		text := strings.TrimSpace(overrideTags.ReplaceAllString(fields[9], ""))
		text = strings.ReplaceAll(text, `\N`, "\n")
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(fields[3])
		if speaker == "" {
			speaker = defaultSpeaker
		}
		out = append(out, types.CaptionCue{
			Index:   len(out) + 1,
			Speaker: speaker,
			Start:   start,
			End:     end,
			Text:    text,
		})
	}
	return out
}

// RenderStyledASS writes one style per speaker label, named after the label,
// so each line is colored by who speaks it.
func RenderStyledASS(cues []types.CaptionCue, style types.StyleOptions) string {
	labels := speakerLabels(cues)

	var b strings.Builder
	b.WriteString(scriptInfo())
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString(styleFormat)
	for i, label := range labels {
		b.WriteString(styleLine(label, style, speakerColor(style, label, i)))
	}
	b.WriteString("\n[Events]\n")
	b.WriteString(eventFormat)
	for _, c := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			assTime(dur(c.Start)), assTime(dur(c.End)), styleName(c.Speaker), assText(c.Text))
	}
	return b.String()
}

func speakerLabels(cues []types.CaptionCue) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range cues {
		name := styleName(c.Speaker)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		out = append(out, defaultSpeaker)
	}
	return out
}

// styleName keeps commas out of the style column.
func styleName(speaker string) string {
	s := strings.TrimSpace(strings.ReplaceAll(speaker, ",", " "))
	if s == "" {
		return defaultSpeaker
	}
	return s
}

// speakerColor resolves a label to a configured color. Keys may be the full
// label ("Speaker 2"), its trailing number ("2"), or, failing both, the
// label's order of first appearance.
func speakerColor(style types.StyleOptions, label string, order int) string {
	if c, ok := style.SpeakerColors[label]; ok {
		return c
	}
	fields := strings.Fields(label)
	if len(fields) > 0 {
		if _, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			if c, ok := style.SpeakerColors[fields[len(fields)-1]]; ok {
				return c
			}
		}
	}
	keys := make([]string, 0, len(style.SpeakerColors))
	for k := range style.SpeakerColors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return "#FFFFFF"
	}
	return style.SpeakerColors[keys[order%len(keys)]]
}

// assColor converts #RRGGBB to &H00BBGGRR. Anything else becomes white.
func assColor(hex string) string {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return "&H00FFFFFF"
	}
	if _, err := strconv.ParseUint(h, 16, 32); err != nil {
		return "&H00FFFFFF"
	}
	h = strings.ToUpper(h)
	return "&H00" + h[4:6] + h[2:4] + h[0:2]
}

func alignment(position string) int {
	switch position {
	case "top":
		return 8
	case "middle":
		return 5
	default:
		return 2
	}
}

// marginV places the caption at PositionPercent of the frame height, measured
// from the top.
func marginV(style types.StyleOptions) int {
	pct := style.PositionPercent
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	switch style.Position {
	case "top":
		return types.TargetHeight * pct / 100
	case "middle":
		return 0
	default:
		return types.TargetHeight * (100 - pct) / 100
	}
}

func styleLine(name string, style types.StyleOptions, color string) string {
	font := style.FontName
	if font == "" {
		font = "Inter"
	}
	size := style.FontSize
	if size <= 0 {
		size = 78
	}
	return fmt.Sprintf(
		"Style: %s,%s,%d,%s,&H00FFD200,&H00000000,&H64000000,1,0,0,0,100,100,0,0,1,6,2,%d,80,80,%d,1\n",
		name, font, size, assColor(color), alignment(style.Position), marginV(style),
	)
}

func assText(s string) string {
	s = sanitizeASS(s)
	return strings.ReplaceAll(s, "\n", `\N`)
}

// parseASSTime accepts H:MM:SS.CC.
func parseASSTime(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad ass time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad ass hours %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad ass minutes %q: %w", s, err)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("bad ass seconds %q: %w", s, err)
	}
	return float64(h*3600+m*60) + sec, nil
}
