// Package gotify implements a trigger that pushes messages to a Gotify server.
// Messages are delivered through the shoutrrr Gotify service.
package gotify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/services/push/gotify"
	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/trigger"
	"github.com/getwud/wud-triggers/pkg/types"
)

// Type is the provider type name.
const Type = "gotify"

var errNotInitialized = errors.New("gotify sender not initialized")

// Configuration holds the Gotify trigger settings.
type Configuration struct {
	trigger.Common `mapstructure:",squash"`

	URL      string `mapstructure:"url"      validate:"required,scheme=http https"`
	Token    string `mapstructure:"token"    validate:"required"`
	Priority int    `mapstructure:"priority" validate:"min=0"`
}

// sender delivers one message to every configured service URL.
type sender interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// senderFactory builds a sender for service URLs.
type senderFactory func(urls ...string) (sender, error)

// Gotify sends one push message per delivery.
type Gotify struct {
	trigger.Base

	cfg       Configuration
	newSender senderFactory
	sender    sender
}

// New creates an unconfigured Gotify trigger.
func New(name string, _ trigger.Dependencies) types.Trigger {
	return &Gotify{
		Base:      trigger.NewBase(Type, name),
		newSender: newShoutrrrSender,
	}
}

func newShoutrrrSender(urls ...string) (sender, error) {
	logger := log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)

	return shoutrrr.NewSender(logger, urls...)
}

// Configure decodes and validates raw settings.
func (g *Gotify) Configure(raw map[string]any) error {
	var cfg Configuration
	if err := trigger.Decode(raw, &cfg); err != nil {
		return err
	}

	cfg.Common.ApplyDefaults()

	if err := trigger.Validate(&cfg); err != nil {
		return err
	}

	g.cfg = cfg

	return g.SetCommon(cfg.Common)
}

// MaskConfiguration returns the settings with the application token hidden.
func (g *Gotify) MaskConfiguration() map[string]any {
	masked := g.cfg.Common.Map()
	masked["url"] = g.cfg.URL
	masked["token"] = trigger.Mask(g.cfg.Token)
	masked["priority"] = g.cfg.Priority

	return masked
}

// Init builds the shoutrrr sender for the configured server.
func (g *Gotify) Init(context.Context) error {
	serviceURL, err := g.serviceURL()
	if err != nil {
		return err
	}

	s, err := g.newSender(serviceURL)
	if err != nil {
		return fmt.Errorf("failed to create gotify sender: %w", err)
	}

	g.sender = s
	g.Log().WithField("url", g.cfg.URL).Debug("Gotify sender ready")

	return nil
}

// serviceURL converts the server URL and token into a shoutrrr service URL.
func (g *Gotify) serviceURL() (string, error) {
	apiURL, err := url.Parse(g.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse gotify url: %w", err)
	}

	config := &gotify.Config{
		Host:       apiURL.Host,
		Path:       apiURL.Path,
		DisableTLS: apiURL.Scheme == "http",
		Token:      g.cfg.Token,
		Priority:   g.cfg.Priority,
	}

	return config.GetURL().String(), nil
}

// Trigger sends one message for the container.
func (g *Gotify) Trigger(_ context.Context, container types.Container) error {
	title, err := g.Renderer().SimpleTitle(container)
	if err != nil {
		return err
	}

	body, err := g.Renderer().SimpleBody(container)
	if err != nil {
		return err
	}

	return g.send(title, body)
}

// TriggerBatch sends one message listing every container.
func (g *Gotify) TriggerBatch(_ context.Context, containers []types.Container) error {
	title, err := g.Renderer().BatchTitle(containers)
	if err != nil {
		return err
	}

	body, err := g.Renderer().BatchBody(containers)
	if err != nil {
		return err
	}

	return g.send(title, body)
}

func (g *Gotify) send(title, message string) error {
	if g.sender == nil {
		return fmt.Errorf("%w: %w", trigger.ErrDelivery, errNotInitialized)
	}

	params := &shoutrrrTypes.Params{}
	params.SetTitle(title)
	(*params)["priority"] = strconv.Itoa(g.cfg.Priority)

	g.Log().WithField("title", title).Debug("Sending gotify message")

	if err := errors.Join(g.sender.Send(message, params)...); err != nil {
		return fmt.Errorf("%w: %w", trigger.ErrDelivery, err)
	}

	return nil
}
