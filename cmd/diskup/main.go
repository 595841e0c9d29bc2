package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hwuu/diskup/internal/config"
	"github.com/hwuu/diskup/internal/logger"
	"github.com/hwuu/diskup/internal/upload"
)

// set with -ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	flagConfig    = "config"
	flagBackend   = "backend"
	flagJobs      = "jobs"
	flagRateLimit = "rate-limit"
	flagLogLevel  = "log-level"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diskup <local-dir> <remote-dir>",
		Short: "Upload a local directory to cloud storage",
		Long: `diskup uploads every file directly inside a local directory to a directory in cloud
storage, creating the remote directory path first when it does not exist.

The OAuth token is read from app.oauth_token (appsettings.json, ~/.diskup/config.yaml or
DISKUP_APP_OAUTH_TOKEN) and falls back to ~/.diskup/credentials.`,
		Example: `  diskup ./photos /photos/2024
  diskup --backend s3 --jobs 8 ./backup /nightly`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runUpload,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default ./appsettings.json, then ~/.diskup/config.yaml)")
	rootCmd.Flags().String(flagBackend, config.BackendDisk, "storage backend: disk|s3|sftp")
	rootCmd.Flags().Int(flagJobs, 0, "maximum concurrent uploads, 0 for no limit")
	rootCmd.Flags().Int(flagRateLimit, 0, "maximum remote requests per second, 0 for no limit")
	rootCmd.Flags().String(flagLogLevel, "info", "log level: debug|info|warn|error")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	configFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return config.Settings{}, err
	}

	opts := config.LoadOptions{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	}
	if wd, err := os.Getwd(); err == nil {
		opts.SearchDirs = []string{wd}
	}

	s, err := config.Load(opts)
	if err != nil {
		return config.Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	log := logger.New(cmd.ErrOrStderr(), s.LogLevel)
	log.Debug().
		Str("backend", s.Backend).
		Str("config", s.ConfigFile).
		Int("jobs", s.Jobs).
		Int("rate_limit", s.RateLimit).
		Msg("settings loaded")

	runner := &upload.Runner{
		Open:        openFunc(s),
		Output:      cmd.OutOrStdout(),
		Logger:      log,
		Jobs:        s.Jobs,
		AuthMessage: authMessage(s.Backend),
	}
	outcome := runner.Run(cmd.Context(), args)
	log.Debug().Stringer("outcome", outcome).Msg("run finished")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "diskup %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
