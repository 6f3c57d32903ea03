package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/forPelevin/speakercut/internal/config"
	"github.com/forPelevin/speakercut/internal/jobs"
)

// Flags shared by generate and resync, keyed by the config key they override.
var styleFlagKeys = map[string]string{
	"position":         "style.position",
	"position-percent": "style.position_percent",
	"font-size":        "style.font_size",
}

func addStyleFlags(cmd *cobra.Command) {
	cmd.Flags().String("position", "", "Caption position: top, middle or bottom")
	cmd.Flags().Int("position-percent", 0, "Caption offset from the top, percent of frame height")
	cmd.Flags().Int("font-size", 0, "Caption font size")
}

// overrides collects explicitly set flags as config overrides.
func overrides(cmd *cobra.Command, keys map[string]string) map[string]any {
	out := map[string]any{}
	for name, key := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		out[key] = f.Value.String()
	}
	return out
}

func loadConfig(cmd *cobra.Command, opts *rootOptions, keys ...map[string]string) (config.Config, error) {
	merged := map[string]any{}
	for _, k := range keys {
		for key, v := range overrides(cmd, k) {
			merged[key] = v
		}
	}
	cfg, err := config.Load(opts.configPath, merged)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newRedisStore(cfg config.Config) (*jobs.RedisStore, *redis.Client) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	return jobs.NewRedisStore(rdb, cfg.Redis.Retention), rdb
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
