// keywatch - global hotkey daemon
// Binds configured key and mouse combos system-wide and runs their actions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"keywatch/internal/autostart"
	"keywatch/internal/config"
	"keywatch/internal/logging"
)

var version = "0.3.0"

// Flags shared by every command
var (
	flagConfig   string
	flagBackend  string
	flagLogLevel string
	flagNoTray   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "keywatch",
	Short: "Global hotkey daemon",
	Long: `keywatch grabs key and mouse combos system-wide and runs an action
when one is pressed or released.

Examples:
  keywatch                         # Run with the default config
  keywatch run --config my.yaml    # Run with another config file
  keywatch run --backend mouse     # Capture mouse buttons instead of keys
  keywatch check                   # Validate the config and resolve every hotkey
  keywatch autostart enable        # Start on login`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService(cmd)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Listen for the configured hotkeys (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService(cmd)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and resolve every hotkey without grabbing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "keywatch version %s\n", version)
	},
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage starting keywatch on login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start keywatch on login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := autostart.Enable(autostartArgs()...); err != nil {
			return fmt.Errorf("enable autostart: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "autostart enabled")
		return nil
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop starting keywatch on login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := autostart.Disable(); err != nil {
			return fmt.Errorf("disable autostart: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "autostart disabled")
		return nil
	},
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether keywatch starts on login",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		state := "disabled"
		if autostart.IsEnabled() {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "autostart %s\n", state)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default is the per-user config path)")
	rootCmd.PersistentFlags().StringVarP(&flagBackend, "backend", "b", "", "capture backend, overrides the config")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level, overrides the config")
	rootCmd.PersistentFlags().BoolVar(&flagNoTray, "no-tray", false, "do not show the tray icon")

	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
	rootCmd.AddCommand(runCmd, checkCmd, versionCmd, autostartCmd)
}

// autostartArgs are the arguments the login entry starts keywatch with.
func autostartArgs() []string {
	args := []string{"run"}
	if flagConfig != "" {
		args = append(args, "--config", flagConfig)
	}
	return args
}

// loadConfig loads the config and installs the logger it selects.
func loadConfig() (*config.Manager, *zap.Logger, error) {
	mgr, err := config.NewManager(flagConfig, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	if err := mgr.Load(); err != nil {
		return nil, nil, err
	}
	cfg := mgr.Get()

	opts := logging.Options{Level: cfg.Log.Level, Development: cfg.Log.Development}
	if flagLogLevel != "" {
		opts.Level = flagLogLevel
	}
	log, err := logging.New(opts)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(log)
	mgr.SetLogger(log)
	return mgr, log, nil
}
