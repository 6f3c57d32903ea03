package highlights

import (
	"regexp"
	"strings"
)

type signal struct {
	re     *regexp.Regexp
	weight float64
}

var infoSignals = []signal{
	{regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`), 0.4},
	{regexp.MustCompile(`(?i)\b(?:how\s+to|step\s+\d+|first|second|third|do\s+this)\b`), 0},
}

// howToBonus is added once when any how-to phrasing appears.
const howToBonus = 1.2

var hookSignals = []signal{
	{regexp.MustCompile(`(?i)\b(?:important|secret|mistake|never|crazy|insane|honestly|truth|nobody|here\s+is\s+why|you\s+know\s+what)\b`), 0.9},
	{regexp.MustCompile(`(?i)\bstep\s+\d+\b`), 0.4},
	{regexp.MustCompile(`(?i)\b(?:haha+|lol|laugh(?:ing|s)?|funny)\b`), 0.8},
	// Direct back-and-forth between speakers.
	{regexp.MustCompile(`(?i)\b(?:wait|no way|are you serious|what do you mean)\b`), 0.6},
}

// Score rates a transcript window for information density and hook
// potential, each within [0, 10].
func Score(text string) (info, hook float64) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, 0
	}

	info = count(infoSignals[0], t) * infoSignals[0].weight
	if infoSignals[1].re.MatchString(t) {
		info += howToBonus
	}
	info -= 0.0006 * float64(len([]rune(t)))

	for _, s := range hookSignals {
		hook += count(s, t) * s.weight
	}
	hook += float64(strings.Count(t, "?"))*0.7 + float64(strings.Count(t, "!"))*0.3

	return clamp(info, 0, 10), clamp(hook, 0, 10)
}

func count(s signal, t string) float64 {
	return float64(len(s.re.FindAllStringIndex(t, -1)))
}

func clamp(x, lo, hi float64) float64 {
	return max(lo, min(x, hi))
}
