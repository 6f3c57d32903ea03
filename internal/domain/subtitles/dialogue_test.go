package subtitles

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/speakercut/internal/types"
)

func TestParseASS_FieldsAndTags(t *testing.T) {
	data := strings.Join([]string{
		"[Events]",
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text",
		"Dialogue: 0,0:00:01.50,0:00:03.00,Host,,0,0,0,,{\\b1}Hello, world{\\b0}",
		"Dialogue: 0,0:00:03.00,0:00:04.00,,,0,0,0,,unnamed",
		"Dialogue: 0,0:00:04.00,0:00:05.00,Host,,0,0,0,,{\\k20}",
		"Dialogue: 0,0:00:05.00",
	}, "\n")
	got := ParseASS(data)
	if len(got) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(got), got)
	}
	if got[0].Speaker != "Host" || got[0].Text != "Hello, world" || got[0].Start != 1.5 || got[0].End != 3 {
		t.Fatalf("unexpected first cue %+v", got[0])
	}
	if got[1].Speaker != defaultSpeaker {
		t.Fatalf("expected default speaker, got %q", got[1].Speaker)
	}
}

func TestRenderStyledASS_RoundTripsSpeakers(t *testing.T) {
	cues := []types.CaptionCue{
		{Speaker: "Speaker 1", Start: 0, End: 2.5, Text: "first"},
		{Speaker: "Speaker 2", Start: 2.5, End: 5, Text: "second\nline"},
	}
	ass := RenderStyledASS(cues, types.DefaultStyle())
	if !strings.Contains(ass, "Style: Speaker 1,Inter,78,&H000045FF,") {
		t.Fatalf("expected orange style for speaker 1:\n%s", ass)
	}
	if !strings.Contains(ass, "Style: Speaker 2,Inter,78,&H00FFBF00,") {
		t.Fatalf("expected blue style for speaker 2:\n%s", ass)
	}
	got := ParseASS(ass)
	if len(got) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(got))
	}
	for i := range cues {
		if got[i].Speaker != cues[i].Speaker || got[i].Text != cues[i].Text {
			t.Fatalf("cue %d: got %+v", i, got[i])
		}
		if math.Abs(got[i].Start-cues[i].Start) > 0.01 || math.Abs(got[i].End-cues[i].End) > 0.01 {
			t.Fatalf("cue %d times: got %+v", i, got[i])
		}
	}
}

func TestMarginVAndAlignment(t *testing.T) {
	tests := []struct {
		pos       string
		pct       int
		wantAlign int
		wantV     int
	}{
		{"bottom", 80, 2, 384},
		{"top", 10, 8, 192},
		{"middle", 50, 5, 0},
		{"bottom", 150, 2, 0},
	}
	for _, tt := range tests {
		st := types.StyleOptions{Position: tt.pos, PositionPercent: tt.pct}
		if got := alignment(tt.pos); got != tt.wantAlign {
			t.Fatalf("alignment(%q) = %d, want %d", tt.pos, got, tt.wantAlign)
		}
		if got := marginV(st); got != tt.wantV {
			t.Fatalf("marginV(%+v) = %d, want %d", st, got, tt.wantV)
		}
	}
}

func TestAssColor(t *testing.T) {
	tests := map[string]string{
		"#FF4500": "&H000045FF",
		"00bfff":  "&H00FFBF00",
		"red":     "&H00FFFFFF",
		"#GGGGGG": "&H00FFFFFF",
	}
	for in, want := range tests {
		if got := assColor(in); got != want {
			t.Fatalf("assColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFile_DispatchByExtension(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "clip.srt")
	if err := os.WriteFile(srt, []byte(WriteSRT([]types.CaptionCue{{Start: 0, End: 1, Text: "a"}})), 0o644); err != nil {
		t.Fatal(err)
	}
	ass := filepath.Join(dir, "clip.ass")
	if err := os.WriteFile(ass, []byte(RenderStyledASS([]types.CaptionCue{{Speaker: "X", Start: 0, End: 1, Text: "b"}}, types.DefaultStyle())), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ParseFile(srt)
	if err != nil || len(got) != 1 || got[0].Text != "a" {
		t.Fatalf("srt: %+v, %v", got, err)
	}
	got, err = ParseFile(ass)
	if err != nil || len(got) != 1 || got[0].Speaker != "X" {
		t.Fatalf("ass: %+v, %v", got, err)
	}
	if _, err := ParseFile(filepath.Join(dir, "clip.vtt")); err == nil {
		t.Fatalf("expected error for missing/unsupported file")
	}
}

func TestCuesFromTranscript(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 1, Text: " hi "},
		{Start: 1, End: 1, Text: "zero"},
		{Start: 1, End: 2, Text: ""},
		{Start: 2, End: 3, Text: "there"},
	}}
	got := CuesFromTranscript(tr)
	if len(got) != 2 || got[0].Text != "hi" || got[1].Index != 2 {
		t.Fatalf("unexpected cues %+v", got)
	}
}

func TestCuesFromTranscript_StrictlyIncreasingStarts(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 4, End: 6, Text: "later"},
		{Start: 0, End: 2, Text: "first"},
		{Start: 0, End: 3, Text: "again"},
		{Start: 2.5, End: 4, Text: "middle"},
	}}
	got := CuesFromTranscript(tr)
	if len(got) != 3 {
		t.Fatalf("expected 3 cues, got %+v", got)
	}
	if got[0].Text != "first again" || got[0].End != 3 {
		t.Fatalf("expected same-start segments merged, got %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start <= got[i-1].Start {
			t.Fatalf("starts not increasing at %d: %+v", i, got)
		}
		if got[i].Index != i+1 {
			t.Fatalf("unexpected index %d at %d", got[i].Index, i)
		}
	}
}
