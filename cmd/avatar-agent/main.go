package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/assistant"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/config"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/internal/logging"
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin"
	_ "github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin/bey"    // Import to register the Beyond Presence avatar
	_ "github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin/fake"   // Import to register fake plugins
	_ "github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin/openai" // Import to register the OpenAI realtime model
	_ "github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/plugin/silero" // Import to register silero VAD
	"github.com/Ifham-Ansari/Beyond-Presence-Avatar/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "avatar-agent",
	Short: "Voice assistant that speaks through a Beyond Presence avatar",
	Long: `avatar-agent joins LiveKit rooms as a realtime voice assistant and
publishes its speech through a Beyond Presence video avatar.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Register as a worker and take room assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkerCommand(cmd, false)
	},
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Run the worker with debug logging; fake plugins are allowed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkerCommand(cmd, true)
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Join a single room directly, without the dispatch server",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, true)
		if err != nil {
			return err
		}
		room, _ := cmd.Flags().GetString("room")
		identity, _ := cmd.Flags().GetString("identity")
		if identity == "" {
			identity = s.cfg.Agent.Name
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runSingleJob(ctx, s, room, identity)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials and provider access without joining a room",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, false)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		failed := 0
		for _, c := range runChecks(ctx, s) {
			status := "ok"
			if c.Err != nil {
				status = "FAIL: " + c.Err.Error()
				failed++
			}
			fmt.Printf("%-10s %s\n", c.Name, status)
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

var downloadFilesCmd = &cobra.Command{
	Use:   "download-files",
	Short: "Download model files required by plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

		downloaded, errCount := 0, 0
		for _, kind := range plugin.ListKinds() {
			for _, p := range plugin.List(kind) {
				if p.Downloader == nil {
					continue
				}
				logger.Info("Downloading plugin files",
					slog.String("kind", p.Kind),
					slog.String("name", p.Name))
				if err := p.Downloader.Download(); err != nil {
					logger.Error("Download failed",
						slog.String("kind", p.Kind),
						slog.String("name", p.Name),
						slog.String("error", err.Error()))
					errCount++
					continue
				}
				downloaded++
			}
		}

		fmt.Printf("Downloaded files for %d plugin(s)\n", downloaded)
		if errCount > 0 {
			return fmt.Errorf("%d download(s) failed", errCount)
		}
		return nil
	},
}

var pluginCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Plugin management commands",
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered plugins",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%-8s %-10s %-10s %s\n", "KIND", "NAME", "VERSION", "DESCRIPTION")
		for _, kind := range plugin.ListKinds() {
			for _, p := range plugin.List(kind) {
				fmt.Printf("%-8s %-10s %-10s %s\n", p.Kind, p.Name, p.Version, p.Description)
			}
		}
	},
}

var pluginLoadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Load shared-object plugins from a directory (requires -tags=plugindyn)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := plugin.LoadDynamicPlugins(args[0]); err != nil {
			return err
		}
		pluginListCmd.Run(cmd, nil)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "Environment files to load (default .env)")
	rootCmd.PersistentFlags().String("profile", "", "Agent profile YAML (default AGENT_PROFILE, then built-in)")

	for _, c := range []*cobra.Command{startCmd, devCmd} {
		c.Flags().String("agent-name", "", "Name to register with (default AGENT_NAME)")
		c.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (default METRICS_ADDR)")
		c.Flags().Duration("job-timeout", 0, "Upper bound on a single job; 0 disables it")
	}
	devCmd.Flags().Bool("fake", false, "Use fake realtime, VAD and avatar plugins")

	connectCmd.Flags().String("room", "", "Room to join")
	connectCmd.Flags().String("identity", "", "Participant identity (default agent name)")
	connectCmd.Flags().Bool("fake", false, "Use fake realtime, VAD and avatar plugins")
	_ = connectCmd.MarkFlagRequired("room")

	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginLoadCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(downloadFilesCmd)
	rootCmd.AddCommand(pluginCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type setupResult struct {
	cfg        config.Config
	profile    assistant.Profile
	logger     *slog.Logger
	components *assistant.PluginComponents
}

// setup loads config and the profile and builds the components shared by
// commands that run the assistant.
func setup(cmd *cobra.Command, allowFakes bool) (*setupResult, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Name() == "dev" {
		cfg.Log.Level = "debug"
	}
	if f := cmd.Flags().Lookup("agent-name"); f != nil && f.Changed {
		cfg.Agent.Name = f.Value.String()
	}
	if f := cmd.Flags().Lookup("metrics-addr"); f != nil && f.Changed {
		cfg.Agent.MetricsAddr = f.Value.String()
	}
	if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
		cfg.Agent.ProfilePath = profile
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	profile, err := assistant.LoadProfile(cfg.Agent.ProfilePath)
	if err != nil {
		return nil, err
	}
	if useFake, _ := cmd.Flags().GetBool("fake"); useFake {
		profile.Realtime, profile.VAD, profile.Avatar = "fake", "fake", "fake"
	}
	if !allowFakes && profile.UsesFakes() {
		return nil, fmt.Errorf("profile uses fake plugins; run with the dev command instead")
	}

	return &setupResult{
		cfg:        cfg,
		profile:    profile,
		logger:     logger,
		components: assistant.NewPluginComponents(cfg, logger),
	}, nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	return config.Load(envFiles...)
}
