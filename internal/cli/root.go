// Package cli provides the command-line interface for companion.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/companion/internal/client"
	"github.com/raphaelgruber/companion/internal/config"
	"github.com/raphaelgruber/companion/internal/metrics"
	"github.com/raphaelgruber/companion/internal/service"
	"github.com/raphaelgruber/companion/internal/state"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	showStats  bool
	apiURLFlag string
	stateFlag  string

	// Global config and clients
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	store     state.Store
	sess      *state.Session
	apiClient *client.Client
	collector *metrics.Collector
	svcs      *service.Services
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Terminal client for the AI companion study",
	Long: `Companion is the participant client of the AI companion research platform.

Chat with the companion, review the memories it proposes, and answer
checkpoint surveys. Your login is kept in a local state file between runs.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if apiURLFlag != "" {
			cfg.APIURL = apiURLFlag
		}
		if stateFlag != "" && stateFlag != cfg.StateBackend {
			cfg.StateBackend = stateFlag
			if os.Getenv("COMPANION_STATE_PATH") == "" {
				cfg.StatePath = config.DefaultStatePath(stateFlag)
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		// The TUI owns the terminal, so interactive commands log to the file only.
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel, !interactive(cmd))
		slog.SetDefault(logger)

		var err error
		store, err = state.Open(cfg.StateBackend, cfg.StatePath)
		if err != nil {
			return fmt.Errorf("open state: %w", err)
		}
		sess = state.NewSession(store)

		collector = metrics.NewCollector()
		opts := []client.Option{
			client.WithLogger(logger),
			client.WithCollector(collector),
			client.WithSlowThreshold(cfg.SlowRequest),
		}
		if cfg.ClientTimeout > 0 {
			opts = append(opts, client.WithTimeout(cfg.ClientTimeout))
		}
		apiClient = client.New(cfg.APIURL, opts...)
		svcs = service.New(cfg, apiClient, sess, logger)

		logger.Debug("client ready", "api_url", cfg.APIURL, "state", cfg.StateBackend, "environment", cfg.Environment)
		return nil
	},
}

// finish prints stats and releases the state store and log file. It runs
// after every command, including failed ones.
func finish() {
	if showStats && collector != nil {
		printCallStats(collector.Snapshot())
	}
	if store != nil {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close state: %v\n", err)
		}
		store = nil
	}
	if closeLog != nil {
		_ = closeLog()
		closeLog = nil
	}
}

// interactive reports whether cmd hands the terminal to a full-screen UI.
func interactive(cmd *cobra.Command) bool {
	switch cmd.CommandPath() {
	case "companion chat", "companion survey take":
		return true
	}
	return false
}

// requireLogin fails when no identity is stored.
func requireLogin() (state.Identity, error) {
	if !sess.LoggedIn() {
		return state.Identity{}, errNotLoggedIn
	}
	return sess.Identity(), nil
}

var errNotLoggedIn = fmt.Errorf("%w: run 'companion login'", service.ErrNotLoggedIn)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer finish()
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print API call statistics on exit")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "backend base URL (default $COMPANION_API_URL)")
	rootCmd.PersistentFlags().StringVar(&stateFlag, "state", "", "state backend: file, sqlite, memory or none")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(conditionCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(surveyCmd)
}
