// Package scheduling runs periodic jobs of wud-triggers, such as batch deliveries and state
// file reloads, using cron specifications. It prevents overlapping runs of the same job and
// ensures graceful shutdown of scheduled operations.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// runWaitTimeout bounds how long shutdown waits for a running job.
const runWaitTimeout = 60 * time.Second

// errScheduleJob indicates a job whose cron specification was rejected.
var errScheduleJob = errors.New("failed to schedule job")

// Job is a named function run on a cron schedule.
type Job struct {
	Name    string                          // Used in logs.
	Spec    string                          // Cron specification; empty disables the job.
	Run     func(ctx context.Context) error // Work to perform.
	OnStart bool                            // Also run once before the scheduler starts.
}

// WaitForRunningJob waits for a currently running job to complete before proceeding with shutdown.
// It checks the lock channel status and blocks with a timeout if a run is in progress.
// Parameters:
//   - ctx: The context for cancellation, allowing early shutdown on context timeout.
//   - lock: The channel used to synchronize runs, ensuring only one runs at a time.
func WaitForRunningJob(ctx context.Context, lock chan bool) {
	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) == 0 {
		select {
		case <-lock:
			logrus.Debug("Lock acquired, job finished.")
		case <-time.After(runWaitTimeout):
			logrus.Warn("Timeout waiting for running job to finish, proceeding with shutdown.")
		case <-ctx.Done():
			logrus.Warn("Context cancelled while waiting for running job.")
		}
	} else {
		logrus.Debug("No job running, lock available.")
	}

	logrus.Debug("Lock check completed.")
}

// newLock returns a lock channel holding its token.
func newLock() chan bool {
	lock := make(chan bool, 1)
	lock <- true

	return lock
}

// guarded wraps job so that a run is skipped while the previous one is still going.
func guarded(ctx context.Context, job Job, lock chan bool) func() {
	clog := logrus.WithField("job", job.Name)

	return func() {
		select {
		case v := <-lock:
			defer func() { lock <- v }()

			if err := job.Run(ctx); err != nil {
				clog.WithError(err).Warn("Scheduled job failed")
			} else {
				clog.Debug("Scheduled job completed successfully")
			}
		default:
			clog.Debug("Skipped another run already running.")
		}
	}
}

// RunOnSchedule schedules jobs and blocks until ctx is cancelled or an interrupt signal arrives.
//
// Jobs with OnStart set run once immediately. Each job has its own lock so that a slow run
// never overlaps the next run of the same job. On shutdown the scheduler stops and running
// jobs get a bounded time to finish.
//
// Parameters:
//   - ctx: The context controlling the scheduler's lifecycle, enabling shutdown on cancellation.
//   - jobs: Jobs to schedule; jobs with an empty Spec are skipped.
//
// Returns:
//   - error: An error if scheduling fails (e.g., invalid cron spec), nil on successful shutdown.
func RunOnSchedule(ctx context.Context, jobs []Job) error {
	scheduler := cron.New()
	locks := make([]chan bool, 0, len(jobs))

	var onStart []func()

	for _, job := range jobs {
		if job.Spec == "" {
			logrus.WithField("job", job.Name).Debug("Job has no schedule; skipping")

			continue
		}

		lock := newLock()
		locks = append(locks, lock)
		run := guarded(ctx, job, lock)

		if err := scheduler.AddFunc(job.Spec, run); err != nil {
			return fmt.Errorf("%w %s: %w", errScheduleJob, job.Name, err)
		}

		if job.OnStart {
			onStart = append(onStart, run)
		}

		logrus.WithFields(logrus.Fields{
			"job":      job.Name,
			"schedule": job.Spec,
		}).Info("Scheduled job")
	}

	for _, run := range onStart {
		run()
	}

	// Start the scheduler to begin periodic execution.
	scheduler.Start()

	// Set up signal handling for graceful shutdown.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	// Wait for shutdown signal or context cancellation.
	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler...")
	case <-interrupt:
		logrus.Debug("Received interrupt signal, stopping scheduler...")
	}

	scheduler.Stop()
	logrus.Debug("Waiting for running jobs to be finished...")

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runWaitTimeout)
	defer cancel()

	for _, lock := range locks {
		WaitForRunningJob(waitCtx, lock)
	}

	logrus.Debug("Scheduler stopped and jobs completed.")

	return nil
}
