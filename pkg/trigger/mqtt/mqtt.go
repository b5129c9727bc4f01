package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/getwud/wud-triggers/internal/util"
	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/trigger"
	"github.com/getwud/wud-triggers/pkg/types"
)

// Type is the provider type name.
const Type = "mqtt"

// Mqtt publishes container state to a broker and optionally drives a Hass synchronizer.
type Mqtt struct {
	trigger.Base

	cfg  Configuration
	deps trigger.Dependencies
	dial dialer

	mu   sync.RWMutex
	conn connection
	hass *Hass
	subs []event.Subscription
}

// New creates an unconfigured MQTT trigger.
func New(name string, deps trigger.Dependencies) types.Trigger {
	return &Mqtt{
		Base: trigger.NewBase(Type, name),
		deps: deps,
		dial: dialPaho,
	}
}

// Configure decodes and validates raw settings. The mode is always simple.
func (m *Mqtt) Configure(raw map[string]any) error {
	var cfg Configuration
	if err := trigger.Decode(raw, &cfg); err != nil {
		return err
	}

	cfg.applyDefaults()

	if err := trigger.Validate(&cfg); err != nil {
		return err
	}

	m.cfg = cfg

	return m.SetCommon(cfg.Common)
}

// MaskConfiguration returns the settings with the password hidden.
func (m *Mqtt) MaskConfiguration() map[string]any {
	masked := m.cfg.Common.Map()
	masked["url"] = m.cfg.URL
	masked["clientid"] = m.cfg.ClientID
	masked["user"] = m.cfg.User
	masked["password"] = trigger.Mask(m.cfg.Password)
	masked["topic"] = m.cfg.Topic
	masked["tls"] = map[string]any{
		"cachain":            m.cfg.TLS.CAChain,
		"clientcert":         m.cfg.TLS.ClientCert,
		"clientkey":          m.cfg.TLS.ClientKey,
		"rejectunauthorized": *m.cfg.TLS.RejectUnauthorized,
	}
	masked["hass"] = map[string]any{
		"enabled":   m.cfg.Hass.Enabled,
		"discovery": m.cfg.Hass.discovery(),
		"prefix":    m.cfg.Hass.Prefix,
	}

	return masked
}

// SelfSubscribes reports that the trigger handles container events itself.
func (m *Mqtt) SelfSubscribes() bool { return true }

// Init connects to the broker and subscribes to container events.
func (m *Mqtt) Init(ctx context.Context) error {
	broker, err := brokerURL(m.cfg.URL)
	if err != nil {
		return err
	}

	tlsConfig, err := loadTLSConfig(m.cfg.TLS)
	if err != nil {
		return err
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(m.cfg.ClientID).
		SetTLSConfig(tlsConfig).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			m.Log().WithError(err).Warn("Lost connection to mqtt broker")
		}).
		SetOnConnectHandler(func(paho.Client) {
			m.Log().WithField("broker", broker).Debug("Connected to mqtt broker")
		})

	if m.cfg.User != "" {
		opts.SetUsername(m.cfg.User)
	}

	if m.cfg.Password != "" {
		opts.SetPassword(m.cfg.Password)
	}

	if m.cfg.Hass.Enabled && m.deps.Store == nil {
		return errNoStore
	}

	conn, err := m.dial(ctx, opts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conn = conn

	if m.deps.Bus != nil {
		handler := func(ctx context.Context, container types.Container) error {
			return m.Trigger(ctx, container)
		}
		ordered := event.WithQueue(event.NewQueue())
		m.subs = append(m.subs,
			m.deps.Bus.OnContainerAdded(handler, ordered),
			m.deps.Bus.OnContainerUpdated(handler, ordered))
	}

	if m.cfg.Hass.Enabled {
		m.hass = NewHass(conn, m.deps.Store, m.cfg.Topic, m.cfg.Hass, m.deps.Version, m.Log())
		if m.deps.Bus != nil {
			m.hass.Subscribe(m.deps.Bus)
		}
	}

	return nil
}

// ContainerTopic returns the state topic of container under base.
func ContainerTopic(base string, container types.Container) string {
	return base + "/" + container.Watcher + "/" + container.Name
}

// Trigger publishes the flattened container, retained, to its state topic.
func (m *Mqtt) Trigger(ctx context.Context, container types.Container) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("%w: %w", trigger.ErrDelivery, errNotConnected)
	}

	flat, err := util.Flatten(container)
	if err != nil {
		return fmt.Errorf("%w: %w", trigger.ErrDelivery, err)
	}

	payload, err := json.Marshal(flat)
	if err != nil {
		return fmt.Errorf("%w: %w", trigger.ErrDelivery, err)
	}

	topic := ContainerTopic(m.cfg.Topic, container)
	m.Log().WithField("topic", topic).Debug("Publish container result")

	if err := conn.Publish(ctx, topic, payload, true); err != nil {
		return fmt.Errorf("%w: %s: %w", trigger.ErrDelivery, topic, err)
	}

	return nil
}

// TriggerBatch always fails: the trigger only supports simple mode.
func (m *Mqtt) TriggerBatch(context.Context, []types.Container) error {
	return fmt.Errorf("%w: %s does not support %q mode", trigger.ErrUnsupported, Type, trigger.ModeBatch)
}

// Close unsubscribes from events and disconnects from the broker.
func (m *Mqtt) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event.Unsubscribe(m.subs...)
	m.subs = nil

	if m.hass != nil {
		m.hass.Unsubscribe()
		m.hass = nil
	}

	if m.conn != nil {
		m.conn.Disconnect()
		m.conn = nil
	}

	return nil
}
