package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/config"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/logging"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/tokenserver"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/token"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "token-server",
	Short: "LiveKit access token server for the Beyond Presence avatar",
	Long: `token-server hands out LiveKit participant tokens to browser clients so
they can join a room with the avatar assistant.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP token server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
		logger.Info("Starting token server",
			slog.String("version", version.Version),
			slog.String("commit", version.GitCommit),
			slog.String("livekit_url", cfg.LiveKit.URL),
			slog.Bool("has_credentials", cfg.HasCredentials()))

		// The server still starts so /health can report the problem.
		if !cfg.HasCredentials() {
			logger.Error("LiveKit credentials are not configured",
				slog.String("detail", tokenserver.CredentialsMissingDetail))
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		handler := tokenserver.New(tokenserver.Options{
			LiveKitURL:     cfg.LiveKit.URL,
			Signer:         token.NewIssuer(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret),
			HasCredentials: cfg.HasCredentials(),
			Logger:         logger,
			Registry:       prometheus.NewRegistry(),
		})

		if err := tokenserver.NewServer(cfg.Server.Addr(), handler, logger).Run(ctx); err != nil {
			logger.Error("Token server failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a participant token without running the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		room, _ := cmd.Flags().GetString("room")
		identity, _ := cmd.Flags().GetString("identity")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		asJSON, _ := cmd.Flags().GetBool("json")

		grant := token.ParticipantGrant(room, identity)
		grant.TTL = ttl
		jwt, err := token.NewIssuer(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret).Sign(grant)
		if err != nil {
			if errors.Is(err, token.ErrCredentialsMissing) {
				return errors.New(tokenserver.CredentialsMissingDetail)
			}
			return err
		}

		if !asJSON {
			fmt.Println(jwt)
			return nil
		}
		var url *string
		if cfg.LiveKit.URL != "" {
			url = &cfg.LiveKit.URL
		}
		return printJSON(tokenserver.TokenResponse{
			URL:      url,
			Token:    jwt,
			RoomName: room,
			Identity: identity,
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a token against the configured API key pair and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		claims, err := token.Verify(args[0], cfg.LiveKit.APIKey, cfg.LiveKit.APISecret)
		if err != nil {
			return err
		}

		out := map[string]any{
			"identity":    claims.Identity(),
			"name":        claims.Name,
			"metadata":    claims.Metadata,
			"kind":        claims.Kind,
			"permissions": claims.Permissions(),
		}
		if claims.Video != nil {
			out["room"] = claims.Video.Room
		}
		if claims.ExpiresAt != nil {
			out["expires_at"] = claims.ExpiresAt.Time.Format(time.RFC3339)
		}
		return printJSON(out)
	},
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	return config.Load(envFiles...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "Environment files to load (default .env)")

	serveCmd.Flags().String("host", config.DefaultHost, "Address to bind")
	serveCmd.Flags().Int("port", config.DefaultPort, "Port to listen on")

	tokenCmd.Flags().String("room", tokenserver.DefaultRoomName, "Room to grant access to")
	tokenCmd.Flags().String("identity", tokenserver.DefaultIdentity, "Participant identity")
	tokenCmd.Flags().Duration("ttl", token.DefaultTTL, "Token validity")
	tokenCmd.Flags().Bool("json", false, "Print the same JSON the server returns")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
