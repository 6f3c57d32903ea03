package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const (
	TaskGenerate = "clip:generate"
	TaskResync   = "clip:resync"

	queueName = "default"
)

type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
	log       zerolog.Logger
}

func NewQueue(redisAddr string, concurrency int, log zerolog.Logger) *Queue {
	if concurrency <= 0 {
		concurrency = 1
	}
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{queueName: 1},
			Logger:      asynqLogger{log: log},
		},
	)
	return &Queue{
		client:    client,
		server:    server,
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(redisOpt),
		log:       log,
	}
}

func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

// EnqueueUnique enqueues with a fixed task id. A finished task holding the id
// is cleared first; an active one is left alone and its id returned.
func (q *Queue) EnqueueUnique(ctx context.Context, taskType string, payload any, uniqueID string, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	opts = append(opts, asynq.TaskID(uniqueID), asynq.Queue(queueName))
	task := asynq.NewTask(taskType, data, opts...)
	info, err := q.client.EnqueueContext(ctx, task)
	if err == nil {
		return info.ID, nil
	}
	if !isTaskConflict(err) {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	if delErr := q.inspector.DeleteTask(queueName, uniqueID); delErr == nil {
		q.log.Debug().Str("task_id", uniqueID).Msg("cleared stale task")
		info, err = q.client.EnqueueContext(ctx, task)
		if err == nil {
			return info.ID, nil
		}
	}
	if isTaskConflict(err) {
		q.log.Info().Str("task", taskType).Str("task_id", uniqueID).Msg("task already active, skipping")
		return uniqueID, nil
	}
	return "", fmt.Errorf("enqueue: %w", err)
}

func (q *Queue) Register(h *Handlers) {
	q.mux.HandleFunc(TaskGenerate, h.ProcessGenerate)
	q.mux.HandleFunc(TaskResync, h.ProcessResync)
}

// Run blocks until SIGTERM/SIGINT.
func (q *Queue) Run() error {
	q.log.Info().Msg("job worker starting")
	return q.server.Run(q.mux)
}

func (q *Queue) Start() error {
	q.log.Info().Msg("job worker starting")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	_ = q.client.Close()
	_ = q.inspector.Close()
}

// Close releases the client side only; used by producers that never serve.
func (q *Queue) Close() {
	_ = q.client.Close()
	_ = q.inspector.Close()
}

// generateTimeout bounds one clip run; transcription of long inputs dominates.
const generateTimeout = 45 * time.Minute

type asynqLogger struct{ log zerolog.Logger }

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
