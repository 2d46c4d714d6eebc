package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compose-network/countdown/countdown-app/config"
	"github.com/compose-network/countdown/log"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "countdown",
		Short: "Countdown",
		Long:  banner + "\n\nA multi-instance countdown timer service.",
		RunE:  runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE:  runConfig,
	}
)

const banner = `
 ___ ___  _   _ _  _ _____ ___   _____      ___  _
/ __/ _ \| | | | \| |_   _|   \ / _ \ \    / / \| |
| (_| (_) | |_| | .` + "`" + ` | | | | |) | (_) \ \/\/ /| .` + "`" + ` |
\___\___/ \___/|_|\_| |_| |___/ \___/ \_/\_/ |_|\_|`

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	rootCmd.AddCommand(versionCmd, configCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults and env when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	// API flags
	rootCmd.PersistentFlags().String("listen-addr", "", "HTTP API listen address")
	rootCmd.PersistentFlags().Bool("cors", false, "enable CORS on the HTTP API")

	// Engine flags
	rootCmd.PersistentFlags().Duration("tick-interval", 0, "wait between two decrements")
	rootCmd.PersistentFlags().Int("max-overtime", 0, "seconds an expired timer keeps counting below zero")
	rootCmd.PersistentFlags().Int("pool-size", 0, "cap on concurrently running timers (0 = unbounded)")
	rootCmd.PersistentFlags().Int("initial-timers", 0, "number of timers created at startup")
	rootCmd.PersistentFlags().Int("min-timers", 0, "minimum number of timers the collection keeps")

	// Metrics flags
	rootCmd.PersistentFlags().Bool("metrics", false, "enable metrics")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func runApp(cmd *cobra.Command, _ []string) error {
	fmt.Println(banner)
	fmt.Println()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := log.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("Build information")

	log.Info().
		Str("config_file", cfgFile).
		Str("listen_addr", cfg.API.ListenAddr).
		Dur("tick_interval", cfg.Engine.TickInterval).
		Int("max_overtime", cfg.Engine.MaxOvertime).
		Int("pool_size", cfg.Engine.PoolSize).
		Int("min_timers", cfg.Engine.MinTimers).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Str("log_level", cfg.Log.Level).
		Msg("Configuration loaded")

	application, err := NewApp(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(cmd.Context())
}

func runVersion(*cobra.Command, []string) {
	fmt.Println(banner)
	fmt.Println()
	fmt.Printf("Countdown\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-pretty") {
		cfg.Log.Pretty, _ = flags.GetBool("log-pretty")
	}

	if flags.Changed("listen-addr") {
		cfg.API.ListenAddr, _ = flags.GetString("listen-addr")
	}
	if flags.Changed("cors") {
		cfg.API.CORS, _ = flags.GetBool("cors")
	}

	if flags.Changed("tick-interval") {
		cfg.Engine.TickInterval, _ = flags.GetDuration("tick-interval")
	}
	if flags.Changed("max-overtime") {
		cfg.Engine.MaxOvertime, _ = flags.GetInt("max-overtime")
	}
	if flags.Changed("pool-size") {
		cfg.Engine.PoolSize, _ = flags.GetInt("pool-size")
	}
	if flags.Changed("initial-timers") {
		cfg.Engine.InitialTimers, _ = flags.GetInt("initial-timers")
	}
	if flags.Changed("min-timers") {
		cfg.Engine.MinTimers, _ = flags.GetInt("min-timers")
	}

	if flags.Changed("metrics") {
		cfg.Metrics.Enabled, _ = flags.GetBool("metrics")
	}
}
