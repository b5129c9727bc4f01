// Package logging provides functions for logging startup information.
// It reports the registered triggers, the excluded ones and the schedules driving delivery.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Startup describes the running configuration reported at startup.
type Startup struct {
	Version       string   // Service version.
	Triggers      []string // Registered triggers as type.name.
	Failed        []string // Excluded triggers as type.name.
	BatchSchedule string   // Empty when no trigger runs in batch mode.
	StateFile     string   // Empty when no state file feeds the store.
	SyncSchedule  string   // State file reload schedule.
	MetricsAddr   string   // Empty when metrics are disabled.
}

// WriteStartupMessage logs startup information.
//
// Parameters:
//   - info: Running configuration to report.
func WriteStartupMessage(info Startup) {
	startupLog := logrus.NewEntry(logrus.StandardLogger())

	startupLog.Info("WUD triggers ", info.Version)

	LogTriggerInfo(startupLog, info.Triggers, info.Failed)
	LogScheduleInfo(startupLog, info)

	if info.MetricsAddr != "" {
		startupLog.WithField("addr", info.MetricsAddr).Info("Metrics endpoint enabled")
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		startupLog.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogTriggerInfo logs the registered triggers and warns about excluded ones.
//
// Parameters:
//   - log: The logrus.Entry used to write the trigger information.
//   - names: Registered triggers.
//   - failed: Triggers excluded because of configuration or initialization errors.
func LogTriggerInfo(log *logrus.Entry, names, failed []string) {
	if len(names) > 0 {
		log.Info("Using triggers: " + strings.Join(names, ", "))
	} else {
		log.Info("Using no triggers")
	}

	if len(failed) > 0 {
		log.Warn("Excluded triggers: " + strings.Join(failed, ", "))
	}
}

// LogScheduleInfo logs how container state reaches the store and when batches are delivered.
//
// Parameters:
//   - log: The logrus.Entry used to write the schedule information.
//   - info: Running configuration to report.
func LogScheduleInfo(log *logrus.Entry, info Startup) {
	switch {
	case info.StateFile != "" && info.SyncSchedule != "":
		log.WithField("schedule", info.SyncSchedule).Info("Reading state from " + info.StateFile + " periodically")
	case info.StateFile != "":
		log.Info("Reading state from " + info.StateFile + " once")
	default:
		log.Info("No state file configured; waiting for events")
	}

	if info.BatchSchedule != "" {
		log.WithField("schedule", info.BatchSchedule).Info("Batch triggers are enabled")
	}
}
