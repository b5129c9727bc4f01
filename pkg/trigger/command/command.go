// Package command implements a trigger that runs a shell command for every update.
//
// Container details are handed to the command through its environment: the flattened
// container fields plus container_json in simple mode, containers_json in batch mode.
// Command failures are logged and never returned to the caller.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/getwud/wud-triggers/internal/util"
	"github.com/getwud/wud-triggers/pkg/trigger"
	"github.com/getwud/wud-triggers/pkg/types"
)

// Type is the provider type name.
const Type = "command"

// Defaults.
const (
	DefaultShell   = "/bin/sh"
	DefaultTimeout = 60000
)

// waitDelay bounds how long output pipes may stay open after the process is killed.
const waitDelay = time.Second

// Environment variables carrying JSON documents.
const (
	envContainerJSON  = "container_json"
	envContainersJSON = "containers_json"
)

var errTimeout = errors.New("command timed out")

// Configuration holds the command trigger settings.
type Configuration struct {
	trigger.Common `mapstructure:",squash"`

	Cmd     string `mapstructure:"cmd"     validate:"required"`
	Shell   string `mapstructure:"shell"`
	Timeout *int   `mapstructure:"timeout" validate:"omitnil,min=0"`
}

// Command runs a shell command on delivery.
type Command struct {
	trigger.Base

	cfg     Configuration
	timeout time.Duration
}

// New creates an unconfigured command trigger.
func New(name string, _ trigger.Dependencies) types.Trigger {
	return &Command{Base: trigger.NewBase(Type, name)}
}

// Configure decodes and validates raw settings.
func (c *Command) Configure(raw map[string]any) error {
	var cfg Configuration
	if err := trigger.Decode(raw, &cfg); err != nil {
		return err
	}

	cfg.Common.ApplyDefaults()

	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}

	if cfg.Timeout == nil {
		timeout := DefaultTimeout
		cfg.Timeout = &timeout
	}

	if err := trigger.Validate(&cfg); err != nil {
		return err
	}

	c.cfg = cfg
	c.timeout = time.Duration(*cfg.Timeout) * time.Millisecond

	return c.SetCommon(cfg.Common)
}

// MaskConfiguration returns the settings for display. Nothing is secret.
func (c *Command) MaskConfiguration() map[string]any {
	masked := c.cfg.Common.Map()
	masked["cmd"] = c.cfg.Cmd
	masked["shell"] = c.cfg.Shell
	masked["timeout"] = *c.cfg.Timeout

	return masked
}

// Init has nothing to prepare.
func (c *Command) Init(context.Context) error { return nil }

// Trigger runs the command with the container fields in its environment.
func (c *Command) Trigger(ctx context.Context, container types.Container) error {
	raw, err := json.Marshal(container)
	if err != nil {
		c.Log().WithError(err).Warn("Unable to encode container for command")

		return nil
	}

	flat, err := util.Flatten(container)
	if err != nil {
		c.Log().WithError(err).Warn("Unable to flatten container for command")

		return nil
	}

	env := make([]string, 0, len(flat)+1)
	for key, value := range flat {
		env = append(env, util.EnvKey(key)+"="+util.Stringify(value))
	}

	env = append(env, envContainerJSON+"="+string(raw))

	c.run(ctx, env)

	return nil
}

// TriggerBatch runs the command with all containers as JSON in its environment.
func (c *Command) TriggerBatch(ctx context.Context, containers []types.Container) error {
	raw, err := json.Marshal(containers)
	if err != nil {
		c.Log().WithError(err).Warn("Unable to encode containers for command")

		return nil
	}

	c.run(ctx, []string{envContainersJSON + "=" + string(raw)})

	return nil
}

// run executes the command and logs its output. extra entries override the parent environment.
func (c *Command) run(ctx context.Context, extra []string) {
	if c.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.cfg.Shell, "-c", c.cfg.Cmd)
	cmd.Env = append(os.Environ(), extra...)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	clog := c.Log().WithField("cmd", c.cfg.Cmd)
	clog.Debug("Running command")

	err := cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", errTimeout, c.timeout, err)
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		clog.WithField("stdout", out).Info("Command output")
	}

	if out := strings.TrimSpace(stderr.String()); out != "" {
		clog.WithField("stderr", out).Warn("Command error output")
	}

	if err != nil {
		clog.WithError(err).Warn("Command execution failed")
	}
}
