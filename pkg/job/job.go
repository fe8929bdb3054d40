// Package job models a single agent assignment: the room it joins and the
// lifecycle that tears it down.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// New creates a Job for cfg. The job ends when parentCtx is cancelled, the
// timeout elapses, or Shutdown is called.
func New(parentCtx context.Context, cfg Config) (*Job, error) {
	if cfg.RoomName == "" {
		return nil, errors.New("room name is required")
	}

	jobID := cfg.ID
	if jobID == "" {
		jobID = generateJobID()
	}

	ctx, cancel := parentCtx, context.CancelFunc(func() {})
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, cfg.Timeout)
	}

	jc := NewJobContext(ctx)
	jc.room = RoomConfig{URL: cfg.URL, Token: cfg.Token, RoomName: cfg.RoomName}
	go func() {
		<-jc.Done()
		cancel()
	}()

	slog.Info("Created new job",
		slog.String("job_id", jobID),
		slog.String("room_name", cfg.RoomName),
		slog.Duration("timeout", cfg.Timeout))

	return &Job{ID: jobID, RoomName: cfg.RoomName, Context: jc}, nil
}

// Shutdown ends the job, running its shutdown hooks once.
func (j *Job) Shutdown(reason string) {
	slog.Info("Shutting down job",
		slog.String("job_id", j.ID),
		slog.String("reason", reason))
	j.Context.Shutdown(reason)
}

// Wait blocks until the job ends and returns why.
func (j *Job) Wait() error {
	<-j.Context.Done()
	return j.Context.Err()
}

func (j *Job) IsActive() bool {
	return !j.Context.IsShutdown()
}

func (j *Job) String() string {
	status := "active"
	if j.Context.IsShutdown() {
		status = "shutdown"
	}
	return fmt.Sprintf("Job{ID: %s, Room: %s, Status: %s}", j.ID, j.RoomName, status)
}

func generateJobID() string {
	return "job_" + uuid.NewString()
}
