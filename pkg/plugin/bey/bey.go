// Package bey starts a Beyond Presence avatar in the agent's room. The avatar
// joins as its own participant, publishes video on the agent's behalf and
// receives the agent's speech over the data channel.
package bey

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/livekit/protocol/livekit"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/avatar"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/token"
)

const (
	DefaultAPIURL   = "https://api.bey.dev"
	DefaultAvatarID = "694c83e2-8895-4a98-bd16-56332ca3f449"

	// AvatarIdentity is the participant identity the avatar joins with.
	AvatarIdentity = "bey-avatar-agent"

	// publishOnBehalfKey tells clients whose media the avatar publishes.
	publishOnBehalfKey = "lk.publish_on_behalf"

	requestTimeout = 15 * time.Second
)

// ErrConfig is returned when the avatar cannot be configured.
var ErrConfig = errors.New("bey avatar configuration error")

// Config configures an AvatarSession.
type Config struct {
	APIKey   string
	APIURL   string
	AvatarID string

	// LiveKitURL is where the avatar connects; Signer mints its token.
	LiveKitURL string
	Signer     token.Signer

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// AvatarSession implements avatar.Session against the Beyond Presence API.
type AvatarSession struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewAvatarSession(cfg Config) (*AvatarSession, error) {
	switch {
	case cfg.APIKey == "":
		return nil, fmt.Errorf("%w: BEY_API_KEY not set", ErrConfig)
	case cfg.AvatarID == "":
		return nil, fmt.Errorf("%w: avatar id not set", ErrConfig)
	case cfg.LiveKitURL == "":
		return nil, fmt.Errorf("%w: LIVEKIT_URL not set", ErrConfig)
	case cfg.Signer == nil:
		return nil, fmt.Errorf("%w: no token signer", ErrConfig)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AvatarSession{
		cfg:    cfg,
		client: client,
		logger: logger.With(slog.String("provider", "bey"), slog.String("avatar_id", cfg.AvatarID)),
	}, nil
}

// Start asks Beyond Presence to send the avatar into room, then routes
// target's speech to it.
func (a *AvatarSession) Start(ctx context.Context, target avatar.Target, room avatar.Room) error {
	if target == nil || room == nil {
		return errors.New("bey avatar requires a target and a room")
	}

	jwt, err := a.avatarToken(room)
	if err != nil {
		return fmt.Errorf("mint avatar token: %w", err)
	}

	a.logger.Debug("Starting avatar session", slog.String("room_name", room.Name()))

	id, err := a.createSession(ctx, jwt)
	if err != nil {
		return err
	}

	target.SetAudioOutput(avatar.NewDataStreamOutput(room, AvatarIdentity, a.logger))

	a.logger.Info("Avatar session started",
		slog.String("room_name", room.Name()),
		slog.String("session_id", id))
	return nil
}

func (a *AvatarSession) avatarToken(room avatar.Room) (string, error) {
	meta, err := json.Marshal(map[string]string{publishOnBehalfKey: room.LocalIdentity()})
	if err != nil {
		return "", err
	}
	return a.cfg.Signer.Sign(token.Grant{
		Identity: AvatarIdentity,
		Name:     AvatarIdentity,
		Room:     room.Name(),
		Metadata: string(meta),
		Kind:     livekit.ParticipantInfo_AGENT,
		Permissions: token.Permissions{
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
			Agent:          true,
		},
	})
}

type sessionRequest struct {
	AvatarID     string `json:"avatar_id"`
	LiveKitURL   string `json:"livekit_url"`
	LiveKitToken string `json:"livekit_token"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

// createSession posts the session request. Network failures and 5xx are
// recoverable; other non-2xx answers are fatal.
func (a *AvatarSession) createSession(ctx context.Context, jwt string) (string, error) {
	body, err := json.Marshal(sessionRequest{
		AvatarID:     a.cfg.AvatarID,
		LiveKitURL:   a.cfg.LiveKitURL,
		LiveKitToken: jwt,
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimSuffix(a.cfg.APIURL, "/") + "/v1/session"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", ai.NewFatalError(err, "invalid Bey API URL: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", ai.NewRecoverableError(err, "Bey API request failed: "+err.Error())
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("Bey API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		statusErr := fmt.Errorf("HTTP %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", ai.NewRecoverableError(statusErr, msg)
		}
		return "", ai.NewFatalError(statusErr, msg)
	}

	var out sessionResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			a.logger.Debug("Unparseable session response", slog.String("error", err.Error()))
		}
	}
	return out.ID, nil
}
