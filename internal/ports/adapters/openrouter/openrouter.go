package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/domain/highlights"
	"github.com/forPelevin/speakercut/internal/types"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

const (
	requestTimeout   = 90 * time.Second
	promptCandidates = 60
	maxTextRunes     = 600
)

var ErrNoChoice = errors.New("openrouter: no usable choice")

func New(apiKey, model, baseURL string, log zerolog.Logger) *Adapter {
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 5 * time.Minute},
		log:     log,
	}
}

type promptCandidate struct {
	Idx      int     `json:"idx"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
	Info     float64 `json:"info"`
	Hook     float64 `json:"hook"`
}

type choice struct {
	Idx    int    `json:"idx"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Pick asks the model for the single most engaging window. Callers fall back
// to their own ranking on any error.
func (a *Adapter) Pick(ctx context.Context, tr types.Transcript, cands []types.Candidate, clipLen time.Duration) (types.Candidate, error) {
	_ = tr // windows already carry their text
	if len(cands) == 0 {
		return types.Candidate{}, ErrNoChoice
	}
	top := highlights.Top(cands, promptCandidates)

	arr := make([]promptCandidate, 0, len(top))
	for i, c := range top {
		arr = append(arr, promptCandidate{
			Idx:      i,
			StartSec: c.Start.Seconds(),
			EndSec:   c.End.Seconds(),
			Text:     truncate(c.Text, maxTextRunes),
			Info:     c.InfoScore,
			Hook:     c.HookScore,
		})
	}
	pb, err := json.Marshal(map[string]any{
		"clipSec":    clipLen.Seconds(),
		"candidates": arr,
	})
	if err != nil {
		return types.Candidate{}, fmt.Errorf("marshal prompt: %w", err)
	}

	content, err := a.complete(ctx, buildPrompt(pb))
	if err != nil {
		return types.Candidate{}, err
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.Candidate{}, err
	}
	var out choice
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return types.Candidate{}, fmt.Errorf("openrouter: decode choice: %w", err)
	}
	if out.Idx < 0 || out.Idx >= len(top) {
		return types.Candidate{}, fmt.Errorf("%w: idx %d out of range", ErrNoChoice, out.Idx)
	}
	a.log.Debug().
		Int("idx", out.Idx).
		Str("title", out.Title).
		Str("reason", truncate(out.Reason, 200)).
		Msg("moment picked")
	return top[out.Idx], nil
}

func (a *Adapter) complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name": "speakercut_pick",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"idx":    map[string]any{"type": "integer"},
						"title":  map[string]any{"type": "string"},
						"reason": map[string]any{"type": "string"},
					},
					"required": []string{"idx", "title", "reason"},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", ErrNoChoice
	}
	return messageContentToString(raw.Choices[0].Message.Content)
}

func buildPrompt(candsJSON []byte) string {
	return "You pick the one moment of a long conversation that would perform best as a vertical short. " +
		"Each candidate is a fixed window of clipSec seconds. " +
		"Prefer windows with a clear hook, a funny or surprising exchange, and a complete thought. " +
		"Return strictly valid JSON (no markdown, no code fences) matching the provided schema, " +
		"where idx is the chosen candidate's idx." +
		"\n\nCandidates JSON:\n" + string(candsJSON)
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
