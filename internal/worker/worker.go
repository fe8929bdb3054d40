// Package worker keeps the agent registered with the dispatch server and
// runs a job for every room assignment it receives.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/job"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/token"
)

// Signal and command type constants
const (
	SignalTypePing       = "ping"
	SignalTypePong       = "pong"
	SignalTypeRegister   = "register"
	SignalTypeRegistered = "registered"
	SignalTypeAssignment = "assignment"
	SignalTypeShutdown   = "shutdown"
	SignalTypeJobUpdate  = "job_update"
)

// Job statuses reported in job_update.
const (
	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// WorkerType is the only dispatch mode: one job per room.
const WorkerType = "room"

// Handler runs one job. It returns once the job is set up; the job keeps
// running until its context ends.
type Handler func(ctx context.Context, jc *job.JobContext) error

type Config struct {
	URL   string
	Token string

	AgentName string
	Version   string

	// LiveKitURL is used for assignments that carry no url.
	LiveKitURL string
	// JobTimeout bounds each job. Zero means no limit.
	JobTimeout time.Duration

	Handler    Handler
	Registerer prometheus.Registerer
}

type Worker struct {
	url        string
	token      string
	agentName  string
	version    string
	livekitURL string
	jobTimeout time.Duration
	handler    Handler

	wsClient *WebSocketClient
	logger   *slog.Logger
	metrics  *Metrics
	in       chan *Signal
	out      chan *Command

	mu             sync.RWMutex
	connected      bool
	backoffAttempt int
	workerID       string

	// baseCtx outlives individual connections so jobs survive reconnects.
	baseCtx context.Context
	jobsMu  sync.Mutex
	jobs    map[string]*job.Job
	jobsWG  sync.WaitGroup
}

func New(config Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		url:        config.URL,
		token:      config.Token,
		agentName:  config.AgentName,
		version:    config.Version,
		livekitURL: config.LiveKitURL,
		jobTimeout: config.JobTimeout,
		handler:    config.Handler,
		logger:     logger,
		metrics:    NewMetrics(config.Registerer),
		in:         make(chan *Signal, 100),
		out:        make(chan *Command, 100),
		wsClient:   NewWebSocketClient(config.URL, config.Token, logger),
		baseCtx:    context.Background(),
		jobs:       make(map[string]*job.Job),
	}
}

// WorkerToken mints the token the worker authenticates with.
func WorkerToken(s token.Signer, agentName string) (string, error) {
	return s.Sign(token.Grant{
		Identity:    agentName,
		Name:        agentName,
		Permissions: token.Permissions{Agent: true},
	})
}

func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("url", w.url),
		slog.String("agent_name", w.agentName))

	w.mu.Lock()
	w.baseCtx = ctx
	w.mu.Unlock()

	// Main worker loop with reconnection
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker shutting down")
			return w.shutdown()
		default:
			if err := w.connectAndRun(ctx); err != nil {
				w.logger.Error("Worker connection failed", slog.String("error", err.Error()))

				if err := w.backoffDelay(ctx); err != nil {
					return w.shutdown()
				}
				continue
			}
		}
	}
}

func (w *Worker) connectAndRun(ctx context.Context) error {
	w.logger.Info("Connecting to LiveKit server")

	if err := w.wsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if err := w.wsClient.Close(); err != nil {
			w.logger.Error("Error closing WebSocket during cleanup", slog.String("error", err.Error()))
		}
	}()

	if err := w.wsClient.WriteCommand(w.registerCommand()); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	w.setConnected(true)
	defer w.setConnected(false)

	readCtx, readCancel := context.WithCancel(ctx)
	defer readCancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.readSignals(readCtx); err != nil {
			errCh <- fmt.Errorf("read signals: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.writeCommands(readCtx); err != nil {
			errCh <- fmt.Errorf("write commands: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.processSignals(readCtx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
	}
	readCancel()
	// Unblock the reader, which does not watch ctx.
	_ = w.wsClient.Close()
	wg.Wait()
	return err
}

func (w *Worker) registerCommand() *Command {
	return &Command{
		Type: SignalTypeRegister,
		Data: map[string]any{
			"agent_name":  w.agentName,
			"worker_type": WorkerType,
			"version":     w.version,
		},
	}
}

func (w *Worker) readSignals(ctx context.Context) error {
	for {
		signal, err := w.wsClient.ReadSignal()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case w.in <- signal:
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Worker) writeCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-w.out:
			if err := w.wsClient.WriteCommand(cmd); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) processSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-w.in:
			w.handleSignal(ctx, signal)
		}
	}
}

func (w *Worker) handleSignal(ctx context.Context, signal *Signal) {
	w.logger.Debug("Processing signal", slog.String("type", signal.Type))

	switch signal.Type {
	case SignalTypePing:
		w.send(ctx, &Command{Type: SignalTypePong, Data: signal.Data})

	case SignalTypeRegistered:
		id := stringField(signal.Data, "worker_id")
		w.mu.Lock()
		w.workerID = id
		w.mu.Unlock()
		w.logger.Info("Worker registered", slog.String("worker_id", id))

	case SignalTypeAssignment:
		w.startJob(ctx, signal.Data)

	case SignalTypeShutdown:
		w.logger.Info("Received shutdown signal")
		w.shutdownJobs("server requested shutdown")

	default:
		w.logger.Warn("Unknown signal type", slog.String("type", signal.Type))
	}
}

// send queues cmd for the writer. Commands are dropped when the queue is full.
func (w *Worker) send(ctx context.Context, cmd *Command) {
	select {
	case w.out <- cmd:
	case <-ctx.Done():
	default:
		w.logger.Warn("Command queue full, dropping command", slog.String("type", cmd.Type))
	}
}

func (w *Worker) reportJob(ctx context.Context, jobID, status string, err error) {
	data := map[string]any{"job_id": jobID, "status": status}
	if err != nil {
		data["error"] = err.Error()
	}
	w.send(ctx, &Command{Type: SignalTypeJobUpdate, Data: data})
}

func (w *Worker) startJob(ctx context.Context, data map[string]any) {
	jobID := stringField(data, "job_id")
	url := stringField(data, "url")
	if url == "" {
		url = w.livekitURL
	}

	w.mu.RLock()
	parent := w.baseCtx
	w.mu.RUnlock()

	j, err := job.New(parent, job.Config{
		ID:       jobID,
		RoomName: stringField(data, "room_name"),
		URL:      url,
		Token:    stringField(data, "token"),
		Timeout:  w.jobTimeout,
	})
	if err != nil {
		w.logger.Error("Rejected assignment",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		w.metrics.jobs.WithLabelValues(JobStatusFailed).Inc()
		w.reportJob(ctx, jobID, JobStatusFailed, err)
		return
	}

	w.jobsMu.Lock()
	w.jobs[j.ID] = j
	w.jobsMu.Unlock()

	w.metrics.jobStarted()
	w.jobsWG.Add(1)
	go w.runJob(parent, j)
}

func (w *Worker) runJob(ctx context.Context, j *job.Job) {
	defer w.jobsWG.Done()
	defer func() {
		w.jobsMu.Lock()
		delete(w.jobs, j.ID)
		w.jobsMu.Unlock()
	}()

	logger := w.logger.With(slog.String("job_id", j.ID), slog.String("room_name", j.RoomName))
	logger.Info("Job started")
	w.reportJob(ctx, j.ID, JobStatusRunning, nil)

	err := w.runHandler(j)
	if err != nil {
		logger.Error("Job failed", slog.String("error", err.Error()))
		j.Shutdown("entrypoint failed")
		w.metrics.jobFinished(JobStatusFailed)
		w.reportJob(ctx, j.ID, JobStatusFailed, err)
		return
	}

	if room := j.Context.Room(); room != nil {
		go watchRoom(j, room)
	}
	<-j.Context.Done()
	j.Shutdown("job ended")

	logger.Info("Job finished", slog.String("reason", fmt.Sprint(j.Context.Err())))
	w.metrics.jobFinished(JobStatusSuccess)
	w.reportJob(ctx, j.ID, JobStatusSuccess, nil)
}

func (w *Worker) runHandler(j *job.Job) (err error) {
	if w.handler == nil {
		return fmt.Errorf("no job handler configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()
	return w.handler(j.Context.Ctx, j.Context)
}

// watchRoom ends the job when the room connection drops.
func watchRoom(j *job.Job, room *job.Room) {
	for ev := range room.Events {
		if ev.Type == job.EventDisconnected {
			j.Shutdown("room disconnected")
			return
		}
	}
}

func (w *Worker) shutdownJobs(reason string) {
	w.jobsMu.Lock()
	jobs := make([]*job.Job, 0, len(w.jobs))
	for _, j := range w.jobs {
		jobs = append(jobs, j)
	}
	w.jobsMu.Unlock()

	for _, j := range jobs {
		j.Shutdown(reason)
	}
}

// ActiveJobs returns the number of running jobs.
func (w *Worker) ActiveJobs() int {
	w.jobsMu.Lock()
	defer w.jobsMu.Unlock()
	return len(w.jobs)
}

// WorkerID is the id assigned by the server, empty until registered.
func (w *Worker) WorkerID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.workerID
}

// backoffFor returns the reconnect delay: 1s, 2s, 4s, 8s, then 10s.
func backoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(math.Min(math.Pow(2, float64(attempt-1)), 10)) * time.Second
}

func (w *Worker) backoffDelay(ctx context.Context) error {
	w.mu.Lock()
	w.backoffAttempt++
	attempt := w.backoffAttempt
	w.mu.Unlock()

	delay := backoffFor(attempt)

	w.logger.Info("Reconnecting with backoff",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) setConnected(connected bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if connected && !w.connected {
		// Reset backoff on successful connection
		w.backoffAttempt = 0
		w.logger.Info("Worker connected successfully")
	}

	w.connected = connected
}

func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Worker) shutdown() error {
	w.logger.Info("Shutting down worker")

	w.shutdownJobs("worker shutting down")
	w.jobsWG.Wait()

	if err := w.wsClient.Close(); err != nil {
		w.logger.Error("Error closing WebSocket", slog.String("error", err.Error()))
		return err
	}

	w.logger.Info("Worker shutdown complete")
	return nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
