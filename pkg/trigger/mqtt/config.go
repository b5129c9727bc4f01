package mqtt

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/getwud/wud-triggers/internal/util"
	"github.com/getwud/wud-triggers/pkg/trigger"
)

// Defaults.
const (
	DefaultTopic      = "wud/container"
	DefaultHassPrefix = "homeassistant"
	clientIDPrefix    = "wud_"
	clientIDLength    = 8
)

// Default broker ports per client scheme.
var defaultPorts = map[string]string{
	"tcp": "1883",
	"ssl": "8883",
}

// clientSchemes maps accepted url schemes to the schemes understood by the client.
var clientSchemes = map[string]string{
	"mqtt":  "tcp",
	"tcp":   "tcp",
	"mqtts": "ssl",
	"tls":   "ssl",
	"ws":    "ws",
	"wss":   "wss",
}

// Configuration holds the MQTT trigger settings.
type Configuration struct {
	trigger.Common `mapstructure:",squash"`

	URL      string            `mapstructure:"url"      validate:"required,scheme=mqtt mqtts tcp tls ws wss"`
	ClientID string            `mapstructure:"clientid"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Topic    string            `mapstructure:"topic"`
	TLS      TLSConfiguration  `mapstructure:"tls"`
	Hass     HassConfiguration `mapstructure:"hass"`
}

// TLSConfiguration holds certificate file paths and verification settings.
type TLSConfiguration struct {
	CAChain            string `mapstructure:"cachain"`
	ClientCert         string `mapstructure:"clientcert"         validate:"required_with=ClientKey"`
	ClientKey          string `mapstructure:"clientkey"          validate:"required_with=ClientCert"`
	RejectUnauthorized *bool  `mapstructure:"rejectunauthorized"`
}

// HassConfiguration holds the Home-Assistant integration settings.
type HassConfiguration struct {
	Enabled   bool   `mapstructure:"enabled"`
	Discovery *bool  `mapstructure:"discovery"`
	Prefix    string `mapstructure:"prefix"`
}

// applyDefaults fills unset settings. Discovery defaults to the enabled flag.
func (c *Configuration) applyDefaults() {
	c.Common.ApplyDefaults()
	c.Common.Mode = trigger.ModeSimple

	if c.ClientID == "" {
		c.ClientID = clientIDPrefix + util.RandHex(clientIDLength)
	}

	if c.Topic == "" {
		c.Topic = DefaultTopic
	}

	if c.TLS.RejectUnauthorized == nil {
		reject := true
		c.TLS.RejectUnauthorized = &reject
	}

	if c.Hass.Discovery == nil {
		discovery := c.Hass.Enabled
		c.Hass.Discovery = &discovery
	}

	if c.Hass.Prefix == "" {
		c.Hass.Prefix = DefaultHassPrefix
	}
}

// discovery reports whether discovery messages are published.
func (h HassConfiguration) discovery() bool {
	return h.Discovery != nil && *h.Discovery
}

// brokerURL converts the configured url into one the client can dial.
//
// mqtt and tcp become tcp://, mqtts and tls become ssl://, websocket urls are kept.
// A missing port gets the protocol default.
func brokerURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBrokerURL, err)
	}

	scheme, ok := clientSchemes[strings.ToLower(parsed.Scheme)]
	if !ok {
		return "", fmt.Errorf("%w: unsupported scheme %q", errBrokerURL, parsed.Scheme)
	}

	parsed.Scheme = scheme
	parsed.User = nil

	if port, ok := defaultPorts[scheme]; ok && parsed.Port() == "" {
		parsed.Host = net.JoinHostPort(parsed.Hostname(), port)
	}

	return parsed.String(), nil
}
