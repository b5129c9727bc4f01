// Package cmd contains the command-line interface (CLI) definitions and execution logic for the
// trigger service.
//
// Key components:
//   - rootCmd: Root command loading triggers, exposing metrics and running schedules.
//   - service: Event bus, container store, loaded triggers and dispatcher.
//
// Usage examples:
//   - Run the CLI from main.go:
//     cmd.Execute()
//   - Notify a command trigger on every update:
//     WUD_TRIGGER_COMMAND_LOCAL_CMD='echo $display_name' wud-triggers --state-file /data/state.json
//
// The package integrates the config, flags, scheduling and trigger packages,
// using Cobra for CLI parsing and logrus for logging.
package cmd
