package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrAlreadyConnected = errors.New("job room already connected")

// NewJobContext returns a JobContext whose Ctx is derived from parent.
func NewJobContext(parent context.Context) *JobContext {
	ctx, cancel := context.WithCancel(parent)
	return &JobContext{
		Ctx:    ctx,
		cancel: cancel,
	}
}

// Connect joins the job's room, subscribing to remote tracks per mode.
// The room is disconnected when the job shuts down.
func (jc *JobContext) Connect(ctx context.Context, mode AutoSubscribe) error {
	jc.roomMu.Lock()
	defer jc.roomMu.Unlock()

	if jc.connected != nil {
		return ErrAlreadyConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := jc.room
	cfg.AutoSubscribe = mode
	room, err := NewRoom(jc.Ctx, cfg)
	if err != nil {
		return fmt.Errorf("job room: %w", err)
	}
	if err := room.Connect(); err != nil {
		_ = room.Disconnect()
		return err
	}

	jc.connected = room
	jc.OnShutdown(func(string) {
		_ = room.Disconnect()
	})
	return nil
}

// Room returns the connected room, or nil before Connect succeeds.
func (jc *JobContext) Room() *Room {
	jc.roomMu.Lock()
	defer jc.roomMu.Unlock()
	return jc.connected
}

// Shutdown runs every registered hook concurrently, waits up to
// ShutdownHookTimeout for them, then cancels Ctx. Only the first call has
// any effect.
func (jc *JobContext) Shutdown(reason string) {
	jc.shutdownMu.Lock()
	if jc.shutdownDone {
		jc.shutdownMu.Unlock()
		return
	}
	jc.shutdownDone = true
	hooks := jc.shutdownHooks
	jc.shutdownHooks = nil
	jc.shutdownMu.Unlock()

	slog.Info("Job shutdown initiated", slog.String("reason", reason))

	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		go func(h func(string)) {
			defer wg.Done()
			runHook(h, reason)
		}(hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Debug("All shutdown hooks completed")
	case <-time.After(ShutdownHookTimeout):
		slog.Warn("Shutdown hooks timed out", slog.Duration("timeout", ShutdownHookTimeout))
	}

	jc.cancel()
}

// OnShutdown registers a hook. Registered after shutdown, it runs at once.
func (jc *JobContext) OnShutdown(hook func(reason string)) {
	jc.shutdownMu.Lock()
	defer jc.shutdownMu.Unlock()

	if jc.shutdownDone {
		go runHook(hook, "job already shut down")
		return
	}
	jc.shutdownHooks = append(jc.shutdownHooks, hook)
}

func (jc *JobContext) IsShutdown() bool {
	select {
	case <-jc.Ctx.Done():
		return true
	default:
		return false
	}
}

func (jc *JobContext) Done() <-chan struct{} {
	return jc.Ctx.Done()
}

func (jc *JobContext) Err() error {
	return jc.Ctx.Err()
}

func runHook(h func(string), reason string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Shutdown hook panicked", slog.Any("panic", r))
		}
	}()
	h(reason)
}
