package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/ai"
)

// PreflightConfig selects the account and model to check.
type PreflightConfig struct {
	APIKey     string
	BaseURL    string // defaults to the go-openai default
	Model      string
	HTTPClient *http.Client
}

// Preflight confirms the key can see the realtime model before any room is
// joined. Auth and not-found failures are fatal; anything else is
// recoverable.
func Preflight(ctx context.Context, cfg PreflightConfig) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY not set: %w", ai.ErrFatal)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	client := openai.NewClientWithConfig(clientCfg)

	if _, err := client.GetModel(ctx, model); err != nil {
		return classify(err, model)
	}
	return nil
}

func classify(err error, model string) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ai.NewFatalError(err, "OpenAI rejected the API key")
	case http.StatusNotFound:
		return ai.NewFatalError(err, fmt.Sprintf("model %q not available to this key", model))
	}
	return ai.NewRecoverableError(err, "OpenAI preflight failed: "+err.Error())
}
