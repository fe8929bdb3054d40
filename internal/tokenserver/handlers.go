// Package tokenserver serves LiveKit participant tokens to browser clients.
package tokenserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/token"
)

const (
	DefaultRoomName = "test-room"
	DefaultIdentity = "test_user"

	// CredentialsMissingDetail is the error body detail when issuance is disabled.
	CredentialsMissingDetail = "LiveKit API credentials not set."
)

// Options configures the token handler. All values are read once at startup.
type Options struct {
	LiveKitURL     string
	Signer         token.Signer
	HasCredentials bool
	Logger         *slog.Logger

	// Registry receives the server's collectors and backs /metrics.
	// A fresh registry is created when nil.
	Registry *prometheus.Registry
}

// TokenResponse is the body returned by GET /get_token.
type TokenResponse struct {
	URL      *string `json:"url"`
	Token    string  `json:"token"`
	RoomName string  `json:"room_name"`
	Identity string  `json:"identity"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status         string  `json:"status"`
	LiveKitURL     *string `json:"livekit_url"`
	HasCredentials bool    `json:"has_credentials"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler routes the token service endpoints.
type Handler struct {
	opts    Options
	logger  *slog.Logger
	metrics *Metrics
	mux     *http.ServeMux
	root    http.Handler
}

// New builds the HTTP handler, including CORS.
func New(opts Options) http.Handler {
	return newHandler(opts)
}

func newHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	h := &Handler{
		opts:    opts,
		logger:  logger,
		metrics: NewMetrics(reg),
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /get_token", h.handleGetToken)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	h.root = withCORS(h.mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	roomName := queryOr(q, "room_name", DefaultRoomName)
	identity := queryOr(q, "identity", DefaultIdentity)

	if !h.opts.HasCredentials || h.opts.Signer == nil {
		h.fail(w, start, "credentials_missing", token.ErrCredentialsMissing)
		return
	}

	h.logger.Info("Generating token",
		slog.String("room_name", roomName),
		slog.String("identity", identity))

	jwt, err := h.opts.Signer.Sign(token.ParticipantGrant(roomName, identity))
	if err != nil {
		result := "signing_error"
		if errors.Is(err, token.ErrCredentialsMissing) {
			result = "credentials_missing"
		}
		h.fail(w, start, result, err)
		return
	}

	h.logger.Info("Token generated successfully", slog.String("identity", identity))
	h.metrics.observe("ok", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, TokenResponse{
		URL:      nullable(h.opts.LiveKitURL),
		Token:    jwt,
		RoomName: roomName,
		Identity: identity,
	})
}

func (h *Handler) fail(w http.ResponseWriter, start time.Time, result string, err error) {
	h.logger.Error("Token generation failed", slog.String("error", err.Error()))
	h.metrics.observe(result, time.Since(start).Seconds())

	detail := err.Error()
	if errors.Is(err, token.ErrCredentialsMissing) {
		detail = CredentialsMissingDetail
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: detail})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		LiveKitURL:     nullable(h.opts.LiveKitURL),
		HasCredentials: h.opts.HasCredentials,
	})
}

// queryOr returns the parameter when present, even if empty, and def otherwise.
func queryOr(q map[string][]string, key, def string) string {
	if v, ok := q[key]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
