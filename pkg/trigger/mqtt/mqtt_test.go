package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/store"
	"github.com/getwud/wud-triggers/pkg/trigger"
	"github.com/getwud/wud-triggers/pkg/types"
)

var errBrokerDown = errors.New("broker down")

// newTestMqtt configures an MQTT trigger whose connections go to broker.
func newTestMqtt(raw map[string]any, deps trigger.Dependencies, broker *recordingBroker) *Mqtt {
	m, ok := New("home", deps).(*Mqtt)
	gomega.Expect(ok).To(gomega.BeTrue())

	m.dial = func(context.Context, *paho.ClientOptions) (connection, error) {
		return broker, nil
	}

	gomega.Expect(m.Configure(raw)).To(gomega.Succeed())

	return m
}

var _ = ginkgo.Describe("the mqtt trigger", func() {
	var broker *recordingBroker

	ctx := context.Background()

	ginkgo.BeforeEach(func() {
		broker = newRecordingBroker()
	})

	ginkgo.Describe("configuration", func() {
		ginkgo.It("should apply defaults", func() {
			m := newTestMqtt(map[string]any{"url": "mqtt://broker.local"}, trigger.Dependencies{}, broker)

			gomega.Expect(m.cfg.Topic).To(gomega.Equal(DefaultTopic))
			gomega.Expect(m.cfg.ClientID).To(gomega.MatchRegexp(`^wud_[0-9a-f]{8}$`))
			gomega.Expect(*m.cfg.TLS.RejectUnauthorized).To(gomega.BeTrue())
			gomega.Expect(m.cfg.Hass.Enabled).To(gomega.BeFalse())
			gomega.Expect(m.cfg.Hass.discovery()).To(gomega.BeFalse())
			gomega.Expect(m.cfg.Hass.Prefix).To(gomega.Equal(DefaultHassPrefix))
		})

		ginkgo.It("should enable discovery with home-assistant by default", func() {
			m := newTestMqtt(map[string]any{
				"url":  "mqtt://broker.local",
				"hass": map[string]any{"enabled": "true"},
			}, trigger.Dependencies{}, broker)

			gomega.Expect(m.cfg.Hass.discovery()).To(gomega.BeTrue())
		})

		ginkgo.It("should force simple mode", func() {
			m := newTestMqtt(map[string]any{"url": "mqtt://broker.local", "mode": "batch"}, trigger.Dependencies{}, broker)

			gomega.Expect(m.Settings().Mode).To(gomega.Equal(trigger.ModeSimple))
			gomega.Expect(m.SelfSubscribes()).To(gomega.BeTrue())
		})

		ginkgo.DescribeTable("should reject invalid settings",
			func(raw map[string]any) {
				err := New("home", trigger.Dependencies{}).Configure(raw)
				gomega.Expect(err).To(gomega.MatchError(trigger.ErrConfiguration))
			},
			ginkgo.Entry("missing url", map[string]any{}),
			ginkgo.Entry("unsupported scheme", map[string]any{"url": "http://broker.local"}),
			ginkgo.Entry("client cert without key", map[string]any{
				"url": "mqtts://broker.local",
				"tls": map[string]any{"clientcert": "/certs/client.crt"},
			}),
			ginkgo.Entry("unknown key", map[string]any{"url": "mqtt://broker.local", "qos": "1"}),
		)

		ginkgo.It("should mask the password", func() {
			m := newTestMqtt(map[string]any{
				"url":      "mqtt://broker.local",
				"user":     "wud",
				"password": "s3cr3t",
			}, trigger.Dependencies{}, broker)

			masked := m.MaskConfiguration()
			gomega.Expect(fmt.Sprint(masked)).NotTo(gomega.ContainSubstring("s3cr3t"))
			gomega.Expect(masked).To(gomega.HaveKeyWithValue("user", "wud"))
			gomega.Expect(masked).To(gomega.HaveKeyWithValue("topic", DefaultTopic))
		})
	})

	ginkgo.DescribeTable("broker url conversion",
		func(raw, expected string) {
			gomega.Expect(brokerURL(raw)).To(gomega.Equal(expected))
		},
		ginkgo.Entry("mqtt", "mqtt://broker.local", "tcp://broker.local:1883"),
		ginkgo.Entry("tcp with port", "tcp://broker.local:1884", "tcp://broker.local:1884"),
		ginkgo.Entry("mqtts", "mqtts://broker.local", "ssl://broker.local:8883"),
		ginkgo.Entry("tls", "tls://broker.local:8884", "ssl://broker.local:8884"),
		ginkgo.Entry("websocket", "ws://broker.local:9001/mqtt", "ws://broker.local:9001/mqtt"),
		ginkgo.Entry("secure websocket", "wss://broker.local/mqtt", "wss://broker.local/mqtt"),
	)

	ginkgo.It("should fail batch delivery", func() {
		m := newTestMqtt(map[string]any{"url": "mqtt://broker.local"}, trigger.Dependencies{}, broker)

		gomega.Expect(m.TriggerBatch(ctx, nil)).To(gomega.MatchError(trigger.ErrUnsupported))
		gomega.Expect(m.TriggerBatch(ctx, []types.Container{{Name: "nginx"}})).To(gomega.MatchError(trigger.ErrUnsupported))
	})

	ginkgo.It("should refuse delivery before init", func() {
		m := newTestMqtt(map[string]any{"url": "mqtt://broker.local"}, trigger.Dependencies{}, broker)

		gomega.Expect(m.Trigger(ctx, types.Container{Name: "nginx"})).To(gomega.MatchError(trigger.ErrDelivery))
	})

	ginkgo.It("should fail init on unreadable tls material", func() {
		m := newTestMqtt(map[string]any{
			"url": "mqtts://broker.local",
			"tls": map[string]any{"cachain": filepath.Join(ginkgo.GinkgoT().TempDir(), "missing.pem")},
		}, trigger.Dependencies{}, broker)

		gomega.Expect(m.Init(ctx)).To(gomega.MatchError(errTLSMaterial))
	})

	ginkgo.It("should fail init when the ca chain holds no certificate", func() {
		path := filepath.Join(ginkgo.GinkgoT().TempDir(), "ca.pem")
		gomega.Expect(os.WriteFile(path, []byte("not a certificate"), 0o600)).To(gomega.Succeed())

		m := newTestMqtt(map[string]any{
			"url": "mqtts://broker.local",
			"tls": map[string]any{"cachain": path},
		}, trigger.Dependencies{}, broker)

		gomega.Expect(m.Init(ctx)).To(gomega.MatchError(errTLSMaterial))
	})

	ginkgo.It("should pass credentials and client id to the client", func() {
		m := newTestMqtt(map[string]any{
			"url":      "mqtt://broker.local",
			"clientid": "wud_test",
			"user":     "wud",
			"password": "s3cr3t",
		}, trigger.Dependencies{}, broker)

		var opts *paho.ClientOptions

		m.dial = func(_ context.Context, o *paho.ClientOptions) (connection, error) {
			opts = o

			return broker, nil
		}

		gomega.Expect(m.Init(ctx)).To(gomega.Succeed())
		gomega.Expect(opts.ClientID).To(gomega.Equal("wud_test"))
		gomega.Expect(opts.Username).To(gomega.Equal("wud"))
		gomega.Expect(opts.Password).To(gomega.Equal("s3cr3t"))
		gomega.Expect(opts.Servers).To(gomega.HaveLen(1))
		gomega.Expect(opts.Servers[0].String()).To(gomega.Equal("tcp://broker.local:1883"))
	})

	ginkgo.It("should publish the flattened container retained", func() {
		m := newTestMqtt(map[string]any{"url": "mqtt://broker.local"}, trigger.Dependencies{}, broker)
		gomega.Expect(m.Init(ctx)).To(gomega.Succeed())

		c := hassContainer("local", "nginx", true)
		c.Result = &types.ContainerResult{Tag: "1.1.0"}
		gomega.Expect(m.Trigger(ctx, c)).To(gomega.Succeed())

		msgs := broker.publishes("wud/container/local/nginx")
		gomega.Expect(msgs).To(gomega.HaveLen(1))
		gomega.Expect(msgs[0].retained).To(gomega.BeTrue())

		var payload map[string]any
		gomega.Expect(json.Unmarshal([]byte(msgs[0].payload), &payload)).To(gomega.Succeed())
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("name", "nginx"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("image_tag_value", "1.0.0"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("update_kind_kind", "tag"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("result_tag", "1.1.0"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("update_available", true))
	})

	ginkgo.It("should wrap publish failures as delivery errors", func() {
		m := newTestMqtt(map[string]any{"url": "mqtt://broker.local"}, trigger.Dependencies{}, broker)
		gomega.Expect(m.Init(ctx)).To(gomega.Succeed())

		broker.err = errBrokerDown

		err := m.Trigger(ctx, types.Container{Watcher: "local", Name: "nginx"})
		gomega.Expect(err).To(gomega.MatchError(trigger.ErrDelivery))
		gomega.Expect(err).To(gomega.MatchError(errBrokerDown))
	})

	ginkgo.It("should require a store for home-assistant integration", func() {
		m := newTestMqtt(map[string]any{
			"url":  "mqtt://broker.local",
			"hass": map[string]any{"enabled": true},
		}, trigger.Dependencies{}, broker)

		gomega.Expect(m.Init(ctx)).To(gomega.MatchError(errNoStore))
	})

	ginkgo.Describe("wired to the event bus", func() {
		var (
			bus *event.Bus
			mem *store.Memory
			m   *Mqtt
		)

		ginkgo.BeforeEach(func() {
			bus = event.New()
			mem = store.NewMemory(bus)
			m = newTestMqtt(map[string]any{
				"url":  "mqtt://broker.local",
				"hass": map[string]any{"enabled": true},
			}, trigger.Dependencies{Bus: bus, Store: mem, Version: "8.1.0"}, broker)
			gomega.Expect(m.Init(ctx)).To(gomega.Succeed())
		})

		ginkgo.AfterEach(func() {
			bus.Close()
		})

		ginkgo.It("should publish containers and sensors on store changes", func() {
			mem.Upsert(ctx, hassContainer("local", "nginx", true))
			mem.SetWatcherRunning(ctx, "local", true)
			bus.Wait()

			gomega.Expect(broker.has("wud/container/local/nginx")).To(gomega.BeTrue())
			gomega.Expect(broker.has("homeassistant/update/wud_container_local_nginx/config")).To(gomega.BeTrue())
			gomega.Expect(broker.value("wud/container/local/update_count")).To(gomega.Equal("1"))
			gomega.Expect(broker.value("wud/container/local/running")).To(gomega.Equal("true"))
		})

		ginkgo.It("should stop publishing after close", func() {
			gomega.Expect(m.Close()).To(gomega.Succeed())
			gomega.Expect(broker.disconnected).To(gomega.BeTrue())

			for _, kind := range event.Kinds {
				gomega.Expect(bus.Subscribers(kind)).To(gomega.BeZero())
			}

			mem.Upsert(ctx, hassContainer("local", "nginx", true))
			bus.Wait()

			gomega.Expect(broker.snapshot()).To(gomega.BeEmpty())
		})
	})
})
