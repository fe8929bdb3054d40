// Package config reads process configuration from the environment once at
// startup and hands it to the rest of the program as a plain struct.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 8000
	DefaultBeyAPIURL = "https://api.bey.dev"
	DefaultAgentName = "bey-avatar-assistant"
)

// LiveKit holds server location and API credentials.
type LiveKit struct {
	URL       string
	APIKey    string
	APISecret string
}

// Server configures the token HTTP server.
type Server struct {
	Host string
	Port int
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type OpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Bey struct {
	APIKey string
	APIURL string
}

// Agent configures the worker process.
type Agent struct {
	Name        string
	ProfilePath string
	MetricsAddr string
}

type Log struct {
	Level  string
	Format string
}

// Config is the full process configuration.
type Config struct {
	LiveKit LiveKit
	Server  Server
	OpenAI  OpenAI
	Bey     Bey
	Agent   Agent
	Log     Log
}

// HasCredentials reports whether both LiveKit API credentials are present.
func (c Config) HasCredentials() bool {
	return c.LiveKit.APIKey != "" && c.LiveKit.APISecret != ""
}

// Load reads the given .env files (or ./.env when none are named) into the
// process environment without overriding variables that are already set,
// then builds a Config from os.Getenv.
func Load(envFiles ...string) (Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return Config{}, err
	}
	return FromEnv(os.Getenv)
}

// LoadDotEnv loads .env files. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		LiveKit: LiveKit{
			URL:       getenv("LIVEKIT_URL"),
			APIKey:    getenv("LIVEKIT_API_KEY"),
			APISecret: getenv("LIVEKIT_API_SECRET"),
		},
		Server: Server{
			Host: withDefault(getenv("TOKEN_SERVER_HOST"), DefaultHost),
			Port: DefaultPort,
		},
		OpenAI: OpenAI{
			APIKey:  getenv("OPENAI_API_KEY"),
			Model:   getenv("OPENAI_REALTIME_MODEL"),
			BaseURL: getenv("OPENAI_BASE_URL"),
		},
		Bey: Bey{
			APIKey: getenv("BEY_API_KEY"),
			APIURL: withDefault(getenv("BEY_API_URL"), DefaultBeyAPIURL),
		},
		Agent: Agent{
			Name:        withDefault(getenv("AGENT_NAME"), DefaultAgentName),
			ProfilePath: getenv("AGENT_PROFILE"),
			MetricsAddr: getenv("METRICS_ADDR"),
		},
		Log: Log{
			Level:  withDefault(getenv("LK_LOG_LEVEL"), "info"),
			Format: withDefault(getenv("LK_LOG_FORMAT"), "json"),
		},
	}

	if p := getenv("TOKEN_SERVER_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid TOKEN_SERVER_PORT %q", p)
		}
		cfg.Server.Port = port
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
