package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/store"
	"github.com/getwud/wud-triggers/pkg/types"
)

func hassContainer(watcher, name string, update bool) types.Container {
	return types.Container{
		ID:              watcher + "-" + name,
		Watcher:         watcher,
		Name:            name,
		UpdateAvailable: update,
		Image:           types.Image{Name: "library/" + name, Tag: types.ImageTag{Value: "1.0.0"}},
		UpdateKind:      types.UpdateKind{Kind: types.UpdateKindTag, LocalValue: "1.0.0", RemoteValue: "1.1.0"},
	}
}

var _ = ginkgo.Describe("the home-assistant synchronizer", func() {
	var (
		broker *recordingBroker
		mem    *store.Memory
		hass   *Hass
	)

	ctx := context.Background()

	ginkgo.BeforeEach(func() {
		broker = newRecordingBroker()
		mem = store.NewMemory(nil)
		discovery := true
		hass = NewHass(broker, mem, DefaultTopic, HassConfiguration{
			Enabled:   true,
			Discovery: &discovery,
			Prefix:    DefaultHassPrefix,
		}, "8.1.0", logrus.WithField("test", "hass"))
	})

	ginkgo.It("should sanitize state topics into entity ids", func() {
		gomega.Expect(HassEntityID("wud/container/myhost/nginx")).To(gomega.Equal("wud_container_myhost_nginx"))
		gomega.Expect(HassEntityID("wud/container/my.host/nginx")).To(gomega.Equal("wud_container_my_host_nginx"))
	})

	ginkgo.It("should sanitize icons", func() {
		gomega.Expect(SanitizeIcon("mdi-docker")).To(gomega.Equal("mdi:docker"))
		gomega.Expect(SanitizeIcon("fab-github")).To(gomega.Equal("fab:github"))
		gomega.Expect(SanitizeIcon("si-redis")).To(gomega.Equal("si:redis"))
		gomega.Expect(SanitizeIcon("mdi:docker")).To(gomega.Equal("mdi:docker"))
	})

	ginkgo.It("should publish an update entity and the aggregates for an added container", func() {
		c := hassContainer("local", "nginx", true)
		c.DisplayIcon = "mdi-web"
		c.DisplayName = "Nginx"
		c.Result = &types.ContainerResult{Tag: "1.1.0", Link: "https://example.com/releases/1.1.0"}
		mem.Upsert(ctx, c)

		gomega.Expect(hass.AddContainerSensor(ctx, c)).To(gomega.Succeed())

		gomega.Expect(broker.has("homeassistant/update/wud_container_local_nginx/config")).To(gomega.BeTrue())
		raw := broker.value("homeassistant/update/wud_container_local_nginx/config")

		var payload map[string]any
		gomega.Expect(json.Unmarshal([]byte(raw), &payload)).To(gomega.Succeed())
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("icon", "mdi:web"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("name", "Nginx"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("unique_id", "wud_container_local_nginx"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("object_id", "wud_container_local_nginx"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("state_topic", "wud/container/local/nginx"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("release_url", "https://example.com/releases/1.1.0"))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("value_template", hassEntityValueTmpl))
		gomega.Expect(payload).To(gomega.HaveKeyWithValue("force_update", true))
		gomega.Expect(payload["device"]).To(gomega.HaveKeyWithValue("sw_version", "8.1.0"))

		gomega.Expect(broker.value("wud/container/total_count")).To(gomega.Equal("1"))
		gomega.Expect(broker.value("wud/container/update_count")).To(gomega.Equal("1"))
		gomega.Expect(broker.value("wud/container/update_status")).To(gomega.Equal("true"))
		gomega.Expect(broker.value("wud/container/local/total_count")).To(gomega.Equal("1"))
		gomega.Expect(broker.value("wud/container/local/update_count")).To(gomega.Equal("1"))
		gomega.Expect(broker.value("wud/container/local/update_status")).To(gomega.Equal("true"))

		statusDiscovery := broker.value("homeassistant/binary_sensor/wud_container_local_update_status/config")
		gomega.Expect(statusDiscovery).To(gomega.ContainSubstring(`"payload_on":"true"`))
		gomega.Expect(statusDiscovery).To(gomega.ContainSubstring(`"name":"Watcher local container update status"`))

		for _, msg := range broker.messages {
			gomega.Expect(msg.retained).To(gomega.BeTrue(), msg.topic)
		}
	})

	ginkgo.It("should default the icon and the name of an entity", func() {
		c := hassContainer("local", "redis", false)
		mem.Upsert(ctx, c)

		gomega.Expect(hass.AddContainerSensor(ctx, c)).To(gomega.Succeed())

		raw := broker.value("homeassistant/update/wud_container_local_redis/config")
		gomega.Expect(raw).To(gomega.ContainSubstring(`"icon":"mdi:docker"`))
		gomega.Expect(raw).To(gomega.ContainSubstring(`"name":"wud_container_local_redis"`))
		gomega.Expect(raw).NotTo(gomega.ContainSubstring("release_url"))
	})

	ginkgo.It("should count updates per watcher from the store", func() {
		containers := []types.Container{
			hassContainer("local", "nginx", true),
			hassContainer("local", "redis", true),
			hassContainer("local", "mongo", false),
			hassContainer("remote", "traefik", true),
		}
		for _, c := range containers {
			mem.Upsert(ctx, c)
		}

		gomega.Expect(hass.AddContainerSensor(ctx, containers[0])).To(gomega.Succeed())

		gomega.Expect(broker.value("wud/container/local/update_count")).To(gomega.Equal("2"))
		gomega.Expect(broker.value("wud/container/local/total_count")).To(gomega.Equal("3"))
		gomega.Expect(broker.value("wud/container/update_count")).To(gomega.Equal("3"))
		gomega.Expect(broker.value("wud/container/total_count")).To(gomega.Equal("4"))

		// A later event reflects the live store rather than earlier values.
		updated := containers[1]
		updated.UpdateAvailable = false
		mem.Upsert(ctx, updated)

		gomega.Expect(hass.AddContainerSensor(ctx, updated)).To(gomega.Succeed())
		gomega.Expect(broker.value("wud/container/local/update_count")).To(gomega.Equal("1"))
		gomega.Expect(broker.value("wud/container/update_count")).To(gomega.Equal("2"))
	})

	ginkgo.It("should leave the same retained state when an event is handled twice", func() {
		c := hassContainer("local", "nginx", true)
		mem.Upsert(ctx, c)

		gomega.Expect(hass.AddContainerSensor(ctx, c)).To(gomega.Succeed())
		once := broker.snapshot()

		gomega.Expect(hass.AddContainerSensor(ctx, c)).To(gomega.Succeed())
		gomega.Expect(broker.snapshot()).To(gomega.Equal(once))
	})

	ginkgo.It("should withdraw the watcher entities once its last container is removed", func() {
		c := hassContainer("local", "nginx", true)
		mem.Upsert(ctx, c)
		gomega.Expect(hass.AddContainerSensor(ctx, c)).To(gomega.Succeed())
		broker.reset()

		mem.Remove(ctx, c)
		gomega.Expect(hass.RemoveContainerSensor(ctx, c)).To(gomega.Succeed())

		gomega.Expect(broker.value("homeassistant/update/wud_container_local_nginx/config")).To(gomega.Equal("{}"))

		for _, topic := range []string{
			"homeassistant/sensor/wud_container_local_total_count/config",
			"homeassistant/sensor/wud_container_local_update_count/config",
			"homeassistant/binary_sensor/wud_container_local_update_status/config",
		} {
			removals := 0

			for _, msg := range broker.publishes(topic) {
				if msg.payload == "{}" {
					removals++
				}
			}

			gomega.Expect(removals).To(gomega.Equal(1), topic)
			gomega.Expect(broker.value(topic)).To(gomega.Equal("{}"))
		}

		gomega.Expect(broker.value("wud/container/local/total_count")).To(gomega.Equal("0"))
		gomega.Expect(broker.value("wud/container/total_count")).To(gomega.Equal("0"))
	})

	ginkgo.It("should keep the watcher entities while it still has containers", func() {
		nginx := hassContainer("local", "nginx", true)
		redis := hassContainer("local", "redis", false)
		mem.Upsert(ctx, nginx)
		mem.Upsert(ctx, redis)
		gomega.Expect(hass.AddContainerSensor(ctx, redis)).To(gomega.Succeed())

		mem.Remove(ctx, nginx)
		gomega.Expect(hass.RemoveContainerSensor(ctx, nginx)).To(gomega.Succeed())

		raw := broker.value("homeassistant/sensor/wud_container_local_total_count/config")
		gomega.Expect(raw).NotTo(gomega.Equal("{}"))
		gomega.Expect(broker.value("wud/container/local/total_count")).To(gomega.Equal("1"))
		gomega.Expect(broker.value("wud/container/local/update_status")).To(gomega.Equal("false"))
	})

	ginkgo.It("should publish the running state of a watcher", func() {
		gomega.Expect(hass.UpdateWatcherSensors(ctx, types.Watcher{Name: "local"}, true)).To(gomega.Succeed())
		gomega.Expect(broker.value("wud/container/local/running")).To(gomega.Equal("true"))

		raw := broker.value("homeassistant/binary_sensor/wud_container_local_running/config")
		gomega.Expect(raw).To(gomega.ContainSubstring(`"name":"Watcher local running status"`))

		gomega.Expect(hass.UpdateWatcherSensors(ctx, types.Watcher{Name: "local"}, false)).To(gomega.Succeed())
		gomega.Expect(broker.value("wud/container/local/running")).To(gomega.Equal("false"))
	})

	ginkgo.When("discovery is disabled", func() {
		ginkgo.BeforeEach(func() {
			discovery := false
			hass = NewHass(broker, mem, DefaultTopic, HassConfiguration{
				Enabled:   true,
				Discovery: &discovery,
				Prefix:    DefaultHassPrefix,
			}, "8.1.0", logrus.WithField("test", "hass"))
		})

		ginkgo.It("should publish states only", func() {
			c := hassContainer("local", "nginx", true)
			mem.Upsert(ctx, c)

			gomega.Expect(hass.AddContainerSensor(ctx, c)).To(gomega.Succeed())
			mem.Remove(ctx, c)
			gomega.Expect(hass.RemoveContainerSensor(ctx, c)).To(gomega.Succeed())

			for topic := range broker.snapshot() {
				gomega.Expect(topic).NotTo(gomega.HavePrefix(DefaultHassPrefix))
			}
		})
	})
})

var _ = ginkgo.Describe("the home-assistant synchronizer fed by the bus", func() {
	var (
		broker *recordingBroker
		bus    *event.Bus
		mem    *store.Memory
		hass   *Hass
	)

	ctx := context.Background()

	ginkgo.BeforeEach(func() {
		broker = newRecordingBroker()
		bus = event.New()
		mem = store.NewMemory(bus)
		discovery := true
		hass = NewHass(broker, mem, DefaultTopic, HassConfiguration{
			Enabled:   true,
			Discovery: &discovery,
			Prefix:    DefaultHassPrefix,
		}, "8.1.0", logrus.WithField("test", "hass"))
		hass.Subscribe(bus)
	})

	ginkgo.AfterEach(func() {
		hass.Unsubscribe()
		bus.Close()
	})

	ginkgo.It("should leave an empty entity after a container is added then removed", func() {
		for i := range 50 {
			c := hassContainer("local", fmt.Sprintf("app%d", i), true)
			mem.Upsert(ctx, c)
			mem.Remove(ctx, c)
		}

		bus.Wait()

		for i := range 50 {
			topic := fmt.Sprintf("homeassistant/update/wud_container_local_app%d/config", i)
			gomega.Expect(broker.value(topic)).To(gomega.Equal("{}"), topic)
		}

		gomega.Expect(broker.value("wud/container/total_count")).To(gomega.Equal("0"))
	})

	ginkgo.It("should keep the last running state of a watcher", func() {
		for i := range 50 {
			name := fmt.Sprintf("watcher%d", i)
			mem.SetWatcherRunning(ctx, name, true)
			mem.SetWatcherRunning(ctx, name, false)
		}

		bus.Wait()

		for i := range 50 {
			topic := fmt.Sprintf("wud/container/watcher%d/running", i)
			gomega.Expect(broker.value(topic)).To(gomega.Equal("false"), topic)
		}
	})
})
