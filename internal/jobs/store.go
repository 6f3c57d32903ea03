package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/forPelevin/speakercut/internal/types"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrLocked   = errors.New("job is locked")
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

type Job struct {
	ID        string              `json:"id"`
	Kind      string              `json:"kind"`
	Status    Status              `json:"status"`
	Artifact  *types.ClipArtifact `json:"artifact,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store keeps job state by id. Lock gives a single writer per job until the
// returned release is called or ttl passes.
type Store interface {
	Get(ctx context.Context, id string) (Job, error)
	Put(ctx context.Context, job Job) error
	Lock(ctx context.Context, id string, ttl time.Duration) (release func(), err error)
}
