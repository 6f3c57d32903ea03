package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/pipeline"
	"github.com/forPelevin/speakercut/internal/types"
)

// Runner is the clip service the handlers drive.
type Runner interface {
	Generate(ctx context.Context, req pipeline.GenerateRequest) (types.ClipArtifact, error)
	Resync(ctx context.Context, req pipeline.ResyncRequest) (types.ClipArtifact, error)
}

type GeneratePayload struct {
	JobID   string                   `json:"job_id"`
	Request pipeline.GenerateRequest `json:"request"`
}

type ResyncPayload struct {
	JobID   string                 `json:"job_id"`
	Request pipeline.ResyncRequest `json:"request"`
}

const resyncLockTTL = 10 * time.Minute

type Handlers struct {
	runner Runner
	store  Store
	log    zerolog.Logger
	now    func() time.Time
}

func NewHandlers(runner Runner, store Store, log zerolog.Logger) *Handlers {
	return &Handlers{runner: runner, store: store, log: log, now: time.Now}
}

func (h *Handlers) ProcessGenerate(ctx context.Context, t *asynq.Task) error {
	var p GeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.JobID == "" || p.Request.VideoPath == "" {
		return fmt.Errorf("%s: job id and video path required: %w", t.Type(), asynq.SkipRetry)
	}
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	log := h.log.With().Str("job_id", p.JobID).Str("task", t.Type()).Logger()
	job := h.begin(ctx, p.JobID, TaskGenerate)
	log.Info().Str("video", p.Request.VideoPath).Msg("generate started")

	art, err := h.runner.Generate(ctx, p.Request)
	return h.finish(ctx, log, job, art, err)
}

// ProcessResync holds the per-clip lock so two edits of one clip never burn
// over each other. A held lock is retried later by asynq.
func (h *Handlers) ProcessResync(ctx context.Context, t *asynq.Task) error {
	var p ResyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.JobID == "" || p.Request.Artifact.Path == "" {
		return fmt.Errorf("%s: job id and clip path required: %w", t.Type(), asynq.SkipRetry)
	}
	log := h.log.With().Str("job_id", p.JobID).Str("task", t.Type()).Logger()

	release, err := h.store.Lock(ctx, lockKey(p.Request.Artifact), resyncLockTTL)
	if err != nil {
		log.Warn().Err(err).Msg("resync deferred")
		return err
	}
	defer release()

	job := h.begin(ctx, p.JobID, TaskResync)
	art, err := h.runner.Resync(ctx, p.Request)
	return h.finish(ctx, log, job, art, err)
}

func lockKey(a types.ClipArtifact) string {
	if a.RunID != "" {
		return a.RunID
	}
	return a.Path
}

func (h *Handlers) begin(ctx context.Context, id, kind string) Job {
	now := h.now()
	job, err := h.store.Get(ctx, id)
	if err != nil {
		job = Job{ID: id, Kind: kind, CreatedAt: now}
	}
	job.Status = StatusRunning
	job.Error = ""
	job.UpdatedAt = now
	if err := h.store.Put(ctx, job); err != nil {
		h.log.Warn().Err(err).Str("job_id", id).Msg("job state not saved")
	}
	return job
}

func (h *Handlers) finish(ctx context.Context, log zerolog.Logger, job Job, art types.ClipArtifact, runErr error) error {
	job.UpdatedAt = h.now()
	if runErr != nil {
		job.Status = StatusFailed
		job.Error = runErr.Error()
		log.Error().Err(runErr).Msg("job failed")
	} else {
		job.Status = StatusDone
		job.Artifact = &art
		log.Info().Str("clip", art.Path).Bool("degraded", art.Degraded).Msg("job done")
	}
	// The store write uses a fresh context so a timed-out run is still recorded.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.store.Put(sctx, job); err != nil {
		log.Warn().Err(err).Msg("job state not saved")
	}
	return runErr
}

// Producer enqueues work and records it as queued.
type Producer struct {
	q     *Queue
	store Store
	now   func() time.Time
}

func NewProducer(q *Queue, store Store) *Producer {
	return &Producer{q: q, store: store, now: time.Now}
}

func (p *Producer) EnqueueGenerate(ctx context.Context, req pipeline.GenerateRequest) (string, error) {
	id := uuid.NewString()
	if err := p.queued(ctx, id, TaskGenerate); err != nil {
		return "", err
	}
	return p.q.EnqueueUnique(ctx, TaskGenerate, GeneratePayload{JobID: id, Request: req}, id,
		asynq.MaxRetry(1), asynq.Timeout(generateTimeout), asynq.Retention(24*time.Hour))
}

func (p *Producer) EnqueueResync(ctx context.Context, req pipeline.ResyncRequest) (string, error) {
	id := uuid.NewString()
	if err := p.queued(ctx, id, TaskResync); err != nil {
		return "", err
	}
	return p.q.EnqueueUnique(ctx, TaskResync, ResyncPayload{JobID: id, Request: req}, id,
		asynq.MaxRetry(5), asynq.Retention(24*time.Hour))
}

func (p *Producer) queued(ctx context.Context, id, kind string) error {
	now := p.now()
	if err := p.store.Put(ctx, Job{ID: id, Kind: kind, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}); err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

// Status reports a job by id.
func (p *Producer) Status(ctx context.Context, id string) (Job, error) {
	return p.store.Get(ctx, id)
}
