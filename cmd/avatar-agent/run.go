package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/assistant"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/worker"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/job"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin/openai"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/token"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/version"
)

func runWorkerCommand(cmd *cobra.Command, dev bool) error {
	s, err := setup(cmd, dev)
	if err != nil {
		return err
	}
	jobTimeout, _ := cmd.Flags().GetDuration("job-timeout")

	s.logger.Info("Starting worker",
		slog.String("service", "avatar-agent"),
		slog.String("version", version.Version),
		slog.String("commit", version.GitCommit),
		slog.String("agent_name", s.cfg.Agent.Name),
		slog.String("livekit_url", s.cfg.LiveKit.URL),
		slog.String("realtime", s.profile.Realtime),
		slog.String("vad", s.profile.VAD),
		slog.String("avatar", s.profile.Avatar),
		slog.Bool("dev", dev))

	if !s.cfg.HasCredentials() {
		return errors.New("LIVEKIT_API_KEY and LIVEKIT_API_SECRET are required")
	}
	agentURL, err := worker.AgentURL(s.cfg.LiveKit.URL)
	if err != nil {
		return err
	}
	workerToken, err := worker.WorkerToken(s.components.Signer, s.cfg.Agent.Name)
	if err != nil {
		return fmt.Errorf("worker token: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if s.cfg.Agent.MetricsAddr != "" {
		go serveMetrics(ctx, s.cfg.Agent.MetricsAddr, reg, s.logger)
	}

	w := worker.New(worker.Config{
		URL:        agentURL,
		Token:      workerToken,
		AgentName:  s.cfg.Agent.Name,
		Version:    version.Version,
		LiveKitURL: s.cfg.LiveKit.URL,
		JobTimeout: jobTimeout,
		Registerer: reg,
		Handler: func(ctx context.Context, jc *job.JobContext) error {
			return assistant.Entrypoint(ctx, assistant.FromJob(jc), s.components, s.profile)
		},
	}, s.logger)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Worker failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// runSingleJob joins room as identity and runs the assistant until the room
// disconnects or ctx ends.
func runSingleJob(ctx context.Context, s *setupResult, room, identity string) error {
	grant := token.ParticipantGrant(room, identity)
	grant.Name = identity
	grant.Agent = true
	tok, err := s.components.Signer.Sign(grant)
	if err != nil {
		return fmt.Errorf("participant token: %w", err)
	}

	j, err := job.New(ctx, job.Config{
		RoomName: room,
		URL:      s.cfg.LiveKit.URL,
		Token:    tok,
	})
	if err != nil {
		return err
	}
	defer j.Shutdown("connect command exiting")

	if err := assistant.Entrypoint(j.Context.Ctx, assistant.FromJob(j.Context), s.components, s.profile); err != nil {
		s.logger.Error("Assistant failed", slog.String("error", err.Error()))
		return err
	}

	var disconnected <-chan *job.Event
	if r := j.Context.Room(); r != nil {
		disconnected = r.Events
	}
	for {
		select {
		case <-j.Context.Done():
			s.logger.Info("Job ended", slog.String("reason", fmt.Sprint(j.Context.Err())))
			return nil
		case ev, ok := <-disconnected:
			if !ok || ev.Type == job.EventDisconnected {
				s.logger.Info("Room disconnected", slog.String("room_name", room))
				return nil
			}
		}
	}
}

type checkResult struct {
	Name string
	Err  error
}

// runChecks validates what the configured profile needs before a job is taken.
func runChecks(ctx context.Context, s *setupResult) []checkResult {
	var results []checkResult

	lk := checkResult{Name: "livekit"}
	switch {
	case s.cfg.LiveKit.URL == "":
		lk.Err = errors.New("LIVEKIT_URL is not set")
	case !s.cfg.HasCredentials():
		lk.Err = token.ErrCredentialsMissing
	default:
		if _, err := worker.AgentURL(s.cfg.LiveKit.URL); err != nil {
			lk.Err = err
		} else if _, err := worker.WorkerToken(s.components.Signer, s.cfg.Agent.Name); err != nil {
			lk.Err = err
		}
	}
	results = append(results, lk)

	if s.profile.Realtime == "openai" {
		results = append(results, checkResult{
			Name: "openai",
			Err: openai.Preflight(ctx, openai.PreflightConfig{
				APIKey:  s.cfg.OpenAI.APIKey,
				BaseURL: s.cfg.OpenAI.BaseURL,
				Model:   s.cfg.OpenAI.Model,
			}),
		})
	}

	if s.profile.Avatar == "bey" {
		bey := checkResult{Name: "bey"}
		if _, err := s.components.NewAvatar(s.profile); err != nil {
			bey.Err = err
		}
		results = append(results, bey)
	}

	return results
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", slog.String("error", err.Error()))
	}
}
