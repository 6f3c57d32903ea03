package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/types"
)

type Adapter struct {
	bin   string
	model string
	log   zerolog.Logger
}

func New(binPath, modelPath string, log zerolog.Logger) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, log: log}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath)))
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-ojf",
		"-of", outPrefix,
	}
	a.log.Debug().Str("wav", wavPath).Msg("whisper.cpp transcribe")
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read whisper output: %w", err)
	}
	return Parse(jb)
}

type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type fullJSON struct {
	Transcription []struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// Parse accepts whisper.cpp JSON (millisecond offsets, optional tokens) and
// falls back to the plain segments layout used by the artifact cache.
func Parse(b []byte) (types.Transcript, error) {
	var full fullJSON
	if err := json.Unmarshal(b, &full); err != nil {
		return types.Transcript{}, fmt.Errorf("parse whisper output: %w", err)
	}
	if len(full.Transcription) == 0 {
		var tr types.Transcript
		if err := json.Unmarshal(b, &tr); err != nil {
			return types.Transcript{}, fmt.Errorf("parse whisper output: %w", err)
		}
		return trim(tr), nil
	}

	var tr types.Transcript
	for _, t := range full.Transcription {
		seg := types.Segment{
			Start: ms(t.Offsets.From),
			End:   ms(t.Offsets.To),
			Text:  t.Text,
		}
		for _, tok := range t.Tokens {
			text := tok.Text
			// Special tokens such as [_BEG_] or [_TT_123].
			if strings.HasPrefix(strings.TrimSpace(text), "[_") {
				continue
			}
			// A token that does not start with a space continues the previous word.
			if len(seg.Words) > 0 && !strings.HasPrefix(text, " ") {
				w := &seg.Words[len(seg.Words)-1]
				w.Word += text
				w.End = ms(tok.Offsets.To)
				continue
			}
			seg.Words = append(seg.Words, types.Word{
				Start: ms(tok.Offsets.From),
				End:   ms(tok.Offsets.To),
				Word:  text,
			})
		}
		tr.Segments = append(tr.Segments, seg)
	}
	return trim(tr), nil
}

func trim(tr types.Transcript) types.Transcript {
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		words := tr.Segments[i].Words[:0]
		for _, w := range tr.Segments[i].Words {
			w.Word = strings.TrimSpace(w.Word)
			if w.Word != "" {
				words = append(words, w)
			}
		}
		tr.Segments[i].Words = words
	}
	return tr
}

func ms(v int64) float64 { return float64(v) / 1000 }
