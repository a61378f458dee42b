package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhenke/punch/internal/output"
	"github.com/jhenke/punch/internal/presenter"
	"github.com/jhenke/punch/internal/registry"
	"github.com/jhenke/punch/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store
	reg       *registry.Registry

	verbose bool
	dryRun  bool

	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "punch",
	Short: "Personal time clock - track work sessions, breaks, and overtime",
	Long: `punch is a personal time-tracking tool.
Clock in and out, take breaks, tag time against projects, and export
timesheets. Widgets and geofence automations can drive the same clock
through 'punch serve'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return statusRun()
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/punch/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "punch")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PUNCH")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "punch")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "punch.db"))
	viper.SetDefault("work.standard_duration", "8h")
	viper.SetDefault("work.default_break_duration", "1h")
	viper.SetDefault("work.auto_add_break", false)
	viper.SetDefault("geofence.enabled", false)
	viper.SetDefault("geofence.auto_clock_in", false)
	viper.SetDefault("geofence.auto_clock_out", false)
	viper.SetDefault("port", 8080)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store and registry are initialized lazily so config/version commands
	// can run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// registryConfig reads the work/geofence settings from viper.
func registryConfig() registry.Config {
	return registry.Config{
		StandardWorkingDuration: durationSetting("work.standard_duration", 8*time.Hour),
		DefaultBreakDuration:    durationSetting("work.default_break_duration", time.Hour),
		AutoAddBreak:            viper.GetBool("work.auto_add_break"),
		GeofencingEnabled:       viper.GetBool("geofence.enabled"),
		AutoClockIn:             viper.GetBool("geofence.auto_clock_in"),
		AutoClockOut:            viper.GetBool("geofence.auto_clock_out"),
	}
}

// durationSetting parses a duration config value, falling back to a default
// on malformed input rather than failing the whole command.
func durationSetting(key string, fallback time.Duration) time.Duration {
	d := viper.GetDuration(key)
	if d <= 0 {
		return fallback
	}
	return d
}

// getRegistry returns the shared session registry, initializing it on first
// call with a log-only snapshot sink.
func getRegistry() (*registry.Registry, error) {
	if reg != nil {
		return reg, nil
	}

	s, err := getStore()
	if err != nil {
		return nil, err
	}

	reg = registry.New(s, registryConfig(), &presenter.LogSink{})
	return reg, nil
}
