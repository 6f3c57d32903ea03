package jobs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Cleaner removes stale per-run work directories left by crashed or
// KeepWork runs.
type Cleaner struct {
	runsDir string
	maxAge  time.Duration
	log     zerolog.Logger
	now     func() time.Time
	cron    *cron.Cron
}

func NewCleaner(runsDir string, maxAge time.Duration, log zerolog.Logger) *Cleaner {
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	return &Cleaner{runsDir: runsDir, maxAge: maxAge, log: log, now: time.Now}
}

// Start schedules Sweep on spec (cron syntax or descriptor like "@hourly").
func (c *Cleaner) Start(spec string) error {
	if spec == "" {
		spec = "@hourly"
	}
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(spec, func() { c.Sweep() }); err != nil {
		return err
	}
	c.cron.Start()
	c.log.Info().Str("schedule", spec).Str("dir", c.runsDir).Msg("run cleaner started")
	return nil
}

func (c *Cleaner) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}

// Sweep deletes run directories not modified within maxAge and returns how
// many it removed.
func (c *Cleaner) Sweep() int {
	entries, err := os.ReadDir(c.runsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("dir", c.runsDir).Msg("read runs dir")
		}
		return 0
	}
	cutoff := c.now().Add(-c.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(c.runsDir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			c.log.Warn().Err(err).Str("dir", p).Msg("remove stale run")
			continue
		}
		removed++
	}
	if removed > 0 {
		c.log.Info().Int("removed", removed).Msg("stale runs removed")
	}
	return removed
}
