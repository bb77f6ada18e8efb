package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/existflow/ironhabit/internal/app"
	"github.com/existflow/ironhabit/internal/config"
	"github.com/existflow/ironhabit/internal/localstore"
	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/tui"
)

var (
	logLevel    string
	logFile     string
	logConsole  bool
	offlineMode bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ironhabit",
	Short: "IronHabit - offline-first todos and habits",
	Long: `IronHabit keeps todos and daily habits on this machine and, when a
sync server is reachable, mirrors the todo list to it.

Run 'ironhabit' without arguments to launch the interactive TUI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		loaded, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.F("error", err))
			loaded = config.DefaultConfig()
		}
		cfg = loaded

		// Override with CLI flags if provided
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}

		// Save config if changed via CLI flags
		if configChanged {
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.F("error", err))
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("IronHabit started", logger.F("command", cmd.Name()), logger.F("offline", offlineMode))
		return nil
	},

	RunE: runTUI,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("IronHabit exiting", logger.F("command", cmd.Name()))
		_ = logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func currentConfig() *config.Config {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		logger.Info("Stdout is not a terminal, listing instead of launching TUI")
		return runList(cmd, args)
	}

	refresh := make(chan struct{}, 1)
	s, err := openSession(sessionOptions{
		render: func(app.Snapshot) {
			select {
			case refresh <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	s.runBackground(ctx)

	logger.Info("Launching TUI")
	m := tui.NewModel(s.engine, tui.Options{
		Dark:      s.store.Theme() == localstore.ThemeDark,
		SaveTheme: s.store.SetTheme,
		Refresh:   refresh,
		Online:    s.monitor.Online,
		Identity:  s.identity.Current,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", logger.F("error", err))
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	logger.Info("TUI exited normally")
	return nil
}

func init() {
	// Add logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
	rootCmd.PersistentFlags().BoolVar(&offlineMode, "offline", false, "Do not contact the sync server")

	// Add subcommands
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(habitCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(clearCmd)
}
