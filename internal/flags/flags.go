package flags

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultBatchSchedule runs batch triggers once an hour.
const DefaultBatchSchedule = "@every 1h"

// DefaultSyncSchedule reloads the state file once a minute.
const DefaultSyncSchedule = "@every 1m"

// errInvalidLogFormat indicates an invalid log format was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an invalid log level was specified.
// It is used in SetupLogging to report configuration errors.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errSetFlagFailed indicates a failure to read or set a flag’s value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errInvalidSchedule indicates a cron expression that cannot be parsed.
var errInvalidSchedule = errors.New("invalid schedule specified")

// Options holds the operational settings read from flags.
type Options struct {
	BatchSchedule string // Cron spec for batch delivery.
	SyncSchedule  string // Cron spec for state file reloads.
	StateFile     string // JSON container state snapshot; empty disables the feed.
	MetricsAddr   string // Listen address for /metrics; empty disables it.
	MetricsToken  string // Bearer token guarding /metrics; empty leaves it open.
	Version       string // Reported to Home-Assistant as the device software version.
}

// RegisterSystemFlags adds operational flags to the root command.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.String(
		"batch-schedule",
		envString("WUD_TRIGGER_BATCH_SCHEDULE"),
		"The cron expression which defines when batch triggers deliver pending updates")

	flags.String(
		"state-file",
		envString("WUD_STATE_FILE"),
		"JSON file with the watchers and containers to track")

	flags.String(
		"sync-schedule",
		envString("WUD_STATE_SYNC_SCHEDULE"),
		"The cron expression which defines when the state file is reloaded")

	flags.String(
		"metrics-addr",
		envString("WUD_METRICS_ADDR"),
		"Address to expose Prometheus metrics on, empty to disable")

	flags.String(
		"metrics-token",
		envString("WUD_METRICS_TOKEN"),
		"Bearer token required to scrape metrics")

	flags.String(
		"wud-version",
		envString("WUD_VERSION"),
		"Version reported to Home-Assistant")

	flags.BoolP(
		"debug",
		"d",
		envBool("WUD_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("WUD_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	flags.String(
		"log-level",
		envString("WUD_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")

	flags.String(
		"log-format",
		envString("WUD_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.Bool(
		"no-color",
		envBool("NO_COLOR"),
		"Disable ANSI color escape codes in log output")
}

// envString retrieves a string value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
// It binds the key to the environment and returns its value.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// SetDefaults configures default values for environment variables.
// It ensures consistent fallback behavior when flags or environment variables are unset.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("WUD_TRIGGER_BATCH_SCHEDULE", DefaultBatchSchedule)
	viper.SetDefault("WUD_STATE_SYNC_SCHEDULE", DefaultSyncSchedule)
	viper.SetDefault("WUD_METRICS_ADDR", ":9090")
	viper.SetDefault("WUD_VERSION", "unknown")
	viper.SetDefault("WUD_LOG_LEVEL", "info")
	viper.SetDefault("WUD_LOG_FORMAT", "auto")
}

// ReadFlags collects the operational settings and validates the schedules.
//
// Parameters:
//   - cmd: Root command with registered flags.
//
// Returns:
//   - Options: Settings read from flags.
//   - error: Non-nil if a flag is missing or a schedule is invalid.
func ReadFlags(cmd *cobra.Command) (Options, error) {
	flags := cmd.PersistentFlags()

	var opts Options

	for name, target := range map[string]*string{
		"batch-schedule": &opts.BatchSchedule,
		"sync-schedule":  &opts.SyncSchedule,
		"state-file":     &opts.StateFile,
		"metrics-addr":   &opts.MetricsAddr,
		"metrics-token":  &opts.MetricsToken,
		"wud-version":    &opts.Version,
	} {
		value, err := flags.GetString(name)
		if err != nil {
			return Options{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		*target = value
	}

	for name, spec := range map[string]string{
		"batch-schedule": opts.BatchSchedule,
		"sync-schedule":  opts.SyncSchedule,
	} {
		if spec == "" {
			continue
		}

		if _, err := cron.Parse(spec); err != nil {
			return Options{}, fmt.Errorf("%w: --%s %q: %w", errInvalidSchedule, name, spec, err)
		}
	}

	return opts, nil
}

// ProcessFlagAliases maps --debug and --trace onto --log-level, trace winning over debug.
func ProcessFlagAliases(flags *pflag.FlagSet) {
	for _, level := range []string{"debug", "trace"} {
		if !flagIsEnabled(flags, level) {
			continue
		}

		if err := flags.Set("log-level", level); err != nil {
			logrus.WithError(err).WithField("alias", level).Error("Failed to apply log level alias")
		}
	}
}

// SetupLogging applies --log-format, --no-color and --log-level to the global logger.
func SetupLogging(flags *pflag.FlagSet) error {
	values := make(map[string]string, 2)

	for _, name := range []string{"log-format", "log-level"} {
		value, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		values[name] = value
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	formatter, err := logFormatter(values["log-format"], noColor)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(values["log-level"])
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetFormatter(formatter)
	logrus.SetLevel(level)

	return nil
}

// logFormatter returns the formatter for one of auto, json, logfmt or pretty.
func logFormatter(format string, noColor bool) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "auto":
		return &logrus.TextFormatter{DisableColors: noColor, EnvironmentOverrideColors: true}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	case "logfmt":
		return &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}, nil
	case "pretty":
		return &logrus.TextFormatter{ForceColors: !noColor}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errInvalidLogFormat, format)
	}
}

// flagIsEnabled reports a boolean flag, exiting if it was never registered.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.WithField("flag", name).Fatal("Flag is not defined")
	}

	return value
}
