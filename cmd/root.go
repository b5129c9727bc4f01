package cmd

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/getwud/wud-triggers/internal/api"
	"github.com/getwud/wud-triggers/internal/config"
	"github.com/getwud/wud-triggers/internal/flags"
	"github.com/getwud/wud-triggers/internal/logging"
	"github.com/getwud/wud-triggers/internal/scheduling"
	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/metrics"
	"github.com/getwud/wud-triggers/pkg/store"
	"github.com/getwud/wud-triggers/pkg/trigger"
	"github.com/getwud/wud-triggers/pkg/trigger/command"
	"github.com/getwud/wud-triggers/pkg/trigger/gotify"
	"github.com/getwud/wud-triggers/pkg/trigger/mqtt"
	"github.com/getwud/wud-triggers/pkg/types"
)

// rootCmd represents the root command for the service.
var rootCmd = NewRootCommand()

// options holds the settings read by preRun.
var options flags.Options

// NewRootCommand creates the root command for the service.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wud-triggers",
		Short: "Delivers container update notifications to configured triggers",
		Long: `
	Delivers container update notifications to commands, Gotify and MQTT brokers.
	Triggers are configured with WUD_TRIGGER_{TYPE}_{NAME}_{KEY} environment variables.
	`,
		Run:    run,
		PreRun: preRun,
		Args:   cobra.NoArgs,
	}
}

// init registers flags with the root command.
func init() {
	flags.SetDefaults()
	flags.RegisterSystemFlags(rootCmd)
}

// Execute runs the root command and handles any errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute root command")
	}
}

// preRun prepares the environment before the main command runs.
func preRun(cmd *cobra.Command, _ []string) {
	flagsSet := cmd.PersistentFlags()
	flags.ProcessFlagAliases(flagsSet)

	if err := flags.SetupLogging(flagsSet); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize logging")
	}

	opts, err := flags.ReadFlags(cmd)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid flags")
	}

	options = opts
}

// run is the main execution function for the root command.
func run(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	os.Exit(runMain(ctx, options, os.Environ()))
}

// runMain starts the service and blocks until shutdown.
//
// Parameters:
//   - ctx: Context controlling the service lifecycle.
//   - opts: Operational settings.
//   - environ: Environment entries holding the trigger configuration.
//
// Returns:
//   - int: Process exit code.
func runMain(ctx context.Context, opts flags.Options, environ []string) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := newService(ctx, opts, environ, metrics.Default())
	defer svc.shutdown()

	if err := api.SetupAndStartAPI(ctx, opts.MetricsAddr, opts.MetricsToken, prometheus.DefaultGatherer); err != nil {
		logrus.WithError(err).Error("Unable to start")

		return 1
	}

	writeStartupMessage(svc)

	// Without a sync schedule the state file is read once.
	if opts.StateFile != "" && opts.SyncSchedule == "" {
		if err := svc.syncState(ctx); err != nil {
			logrus.WithError(err).Warn("Unable to read state file")
		}
	}

	if err := scheduling.RunOnSchedule(ctx, svc.jobs()); err != nil {
		logrus.WithError(err).Error("Scheduler failed")

		return 1
	}

	return 0
}

// newRegistry returns a registry knowing every trigger type.
func newRegistry() *trigger.Registry {
	registry := trigger.NewRegistry()
	registry.Register(command.Type, command.New)
	registry.Register(gotify.Type, gotify.New)
	registry.Register(mqtt.Type, mqtt.New)

	return registry
}

// service holds the running components.
type service struct {
	opts       flags.Options
	bus        *event.Bus
	store      *store.Memory
	triggers   []types.Trigger
	report     trigger.LoadReport
	dispatcher *trigger.Dispatcher
	subs       []event.Subscription
}

// newService loads the configured triggers and subscribes them to the bus.
//
// A trigger whose variables cannot be read or that fails to load is excluded and
// reported. The others start normally.
func newService(ctx context.Context, opts flags.Options, environ []string, m *metrics.Metrics) *service {
	configs, failures := config.Triggers(environ)

	bus := event.New()
	memory := store.NewMemory(bus)

	triggers, report := newRegistry().Load(ctx, configs, trigger.Dependencies{
		Bus:     bus,
		Store:   memory,
		Version: opts.Version,
	})
	report.Failed = append(failures, report.Failed...)

	m.SetLoaded(len(report.Loaded), len(report.Failed))

	dispatcher := trigger.NewDispatcher(bus, memory, triggers, m)
	dispatcher.Start()

	return &service{
		opts:       opts,
		bus:        bus,
		store:      memory,
		triggers:   triggers,
		report:     report,
		dispatcher: dispatcher,
		subs:       m.Observe(bus),
	}
}

// jobs returns the scheduled work for the service.
func (s *service) jobs() []scheduling.Job {
	var jobs []scheduling.Job

	if s.dispatcher.HasBatchTriggers() {
		jobs = append(jobs, scheduling.Job{
			Name: "batch",
			Spec: s.opts.BatchSchedule,
			Run:  s.dispatcher.RunBatch,
		})
	}

	if s.opts.StateFile != "" {
		jobs = append(jobs, scheduling.Job{
			Name:    "state-sync",
			Spec:    s.opts.SyncSchedule,
			Run:     s.syncState,
			OnStart: true,
		})
	}

	return jobs
}

// syncState reloads the state file into the store.
func (s *service) syncState(ctx context.Context) error {
	snapshot, err := store.LoadSnapshot(s.opts.StateFile)
	if err != nil {
		return err
	}

	report := s.store.Apply(ctx, snapshot)

	logrus.WithFields(logrus.Fields{
		"file":      s.opts.StateFile,
		"added":     report.Added,
		"updated":   report.Updated,
		"removed":   report.Removed,
		"unchanged": report.Unchanged,
	}).Debug("State file synchronized")

	return nil
}

// shutdown releases subscriptions and triggers, then waits for in-flight handlers.
func (s *service) shutdown() {
	s.dispatcher.Stop()
	event.Unsubscribe(s.subs...)
	s.bus.Close()
	logrus.Debug("Service stopped")
}

// writeStartupMessage logs which triggers are active and how the service is fed.
func writeStartupMessage(s *service) {
	info := logging.Startup{
		Version:     s.opts.Version,
		StateFile:   s.opts.StateFile,
		MetricsAddr: s.opts.MetricsAddr,
	}

	for _, t := range s.triggers {
		info.Triggers = append(info.Triggers, t.Type()+"."+t.Name())
	}

	for _, failure := range s.report.Failed {
		info.Failed = append(info.Failed, failure.Type+"."+failure.Name)
	}

	if s.opts.StateFile != "" {
		info.SyncSchedule = s.opts.SyncSchedule
	}

	if s.dispatcher.HasBatchTriggers() {
		info.BatchSchedule = s.opts.BatchSchedule
	}

	logging.WriteStartupMessage(info)
}
