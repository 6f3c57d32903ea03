package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/speakercut/internal/types"
)

// ArtifactPath is the JSON sidecar of a clip: clip.mp4 -> clip.json.
func ArtifactPath(clipPath string) string {
	return strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + ".json"
}

func LoadArtifact(path string) (types.ClipArtifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.ClipArtifact{}, fmt.Errorf("read artifact: %w", err)
	}
	var art types.ClipArtifact
	if err := json.Unmarshal(b, &art); err != nil {
		return types.ClipArtifact{}, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return art, nil
}

// WriteArtifact replaces path atomically.
func WriteArtifact(path string, art types.ClipArtifact) error {
	b, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
