package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/hostel/internal/logger"
	"github.com/joescharf/hostel/internal/notify"
	"github.com/joescharf/hostel/internal/output"
	"github.com/joescharf/hostel/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	hostelApp *app

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "hostel",
	Short: "Hostel complaints - submit, triage and resolve maintenance issues",
	Long: `hostel tracks maintenance complaints in a student hostel.

Students submit complaints about their rooms; wardens assign them to
staff teams and move them through submitted, assigned, in-progress,
resolved and closed. Run 'hostel shell' for an interactive session or
'hostel serve' for the REST API.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/hostel/config.yaml)")
}

func initConfig() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("HOSTEL")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	dir, _ := configDirFunc()
	setDefaults(dir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.dsn", store.MemoryDSN)
	viper.SetDefault("seed_file", "")
	viper.SetDefault("lifecycle.strict", false)
	viper.SetDefault("identity.latency", "0s")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.jwt_secret", "")
	viper.SetDefault("server.cors_origins", []string{})
	viper.SetDefault("notify.redis_addr", "")
	viper.SetDefault("notify.redis_channel", "hostel:complaints:events")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("mcp.email", "warden@hostel.edu")
	viper.SetDefault("mcp.role", "warden")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	level := viper.GetString("log.level")
	if verbose {
		level = "debug"
	}
	if _, err := logger.Init(logger.Options{Level: level, Format: viper.GetString("log.format")}); err != nil {
		ui.Warning("Logging: %v", err)
	}

	// The app (store, sessions, services) is built lazily, only when a
	// command needs it. This allows config/version commands to run without it.
}

// getApp returns the shared app, building it on first call.
func getApp() (*app, error) {
	if hostelApp != nil {
		return hostelApp, nil
	}
	a, err := newApp(rootCmd.Context(), appOptions{notifier: noticeNotifier()})
	if err != nil {
		return nil, err
	}
	hostelApp = a
	return hostelApp, nil
}

// noticeNotifier prints lifecycle events as confirmation messages.
func noticeNotifier() notify.Notifier {
	return notify.Func(func(_ context.Context, e notify.Event) {
		ui.Notice("%s", e.Message)
	})
}

func closeApp() {
	if hostelApp == nil {
		return
	}
	if err := hostelApp.Close(); err != nil {
		ui.Warning("Shutdown: %v", err)
	}
	hostelApp = nil
}
