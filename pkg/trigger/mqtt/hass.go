package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/getwud/wud-triggers/pkg/event"
	"github.com/getwud/wud-triggers/pkg/types"
)

// Home-Assistant device and entity constants.
const (
	hassDeviceID           = "wud"
	hassDeviceName         = "wud"
	hassManufacturer       = "wud"
	hassEntityPicture      = "https://github.com/getwud/wud/raw/main/docs/assets/wud-logo-256.png"
	hassDefaultIcon        = "mdi:docker"
	hassEntityValueTmpl    = "{{ value_json.image_tag_value }}"
	hassLatestVersionTmpl  = `{% if value_json.update_kind_kind == "digest" %}{{ value_json.result_digest[:15] }}{% else %}{{ value_json.result_tag }}{% endif %}`
	hassPayloadOn          = "true"
	hassPayloadOff         = "false"
	hassRemovePayload      = "{}"
	hassKindUpdate         = "update"
	hassKindSensor         = "sensor"
	hassKindBinarySensor   = "binary_sensor"
	hassTopicTotalCount    = "total_count"
	hassTopicUpdateCount   = "update_count"
	hassTopicUpdateStatus  = "update_status"
	hassTopicWatcherStatus = "running"
)

// iconPrefixes maps dash-separated icon prefixes to the colon form Home-Assistant expects.
var iconPrefixes = strings.NewReplacer(
	"mdi-", "mdi:",
	"fa-", "fa:",
	"fab-", "fab:",
	"far-", "far:",
	"fas-", "fas:",
	"si-", "si:",
)

// HassEntityID derives a Home-Assistant entity id from a state topic.
//
// Parameters:
//   - topic: State topic such as "wud/container/local/nginx".
//
// Returns:
//   - string: Id with "." and "/" replaced by "_".
func HassEntityID(topic string) string {
	return strings.NewReplacer(".", "_", "/", "_").Replace(topic)
}

// SanitizeIcon converts icon names such as "mdi-docker" to "mdi:docker".
func SanitizeIcon(icon string) string {
	return iconPrefixes.Replace(icon)
}

// device identifies wud in discovery payloads.
type device struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version"`
}

// discovery describes one entity announcement.
type discovery struct {
	topic      string
	stateTopic string
	name       string
	icon       string
	options    map[string]any
}

// Hass keeps Home-Assistant entities on the broker in line with the container store.
//
// Aggregates are always recounted from the store when published, so retained values
// converge whatever the order of the events that led to them.
type Hass struct {
	publisher Publisher
	store     types.Store
	topic     string
	prefix    string
	discovery bool
	version   string
	log       *logrus.Entry

	subs []event.Subscription
}

// NewHass creates a synchronizer publishing under topic, with discovery messages under prefix.
func NewHass(publisher Publisher, store types.Store, topic string, cfg HassConfiguration, version string, log *logrus.Entry) *Hass {
	return &Hass{
		publisher: publisher,
		store:     store,
		topic:     topic,
		prefix:    cfg.Prefix,
		discovery: cfg.discovery(),
		version:   version,
		log:       log,
	}
}

// Subscribe registers the synchronizer for container and watcher events.
//
// All five subscriptions share one queue: an add followed by a remove is applied in that order.
func (h *Hass) Subscribe(bus *event.Bus) {
	ordered := event.WithQueue(event.NewQueue())

	h.subs = append(h.subs,
		bus.OnContainerAdded(h.AddContainerSensor, ordered),
		bus.OnContainerUpdated(h.AddContainerSensor, ordered),
		bus.OnContainerRemoved(h.RemoveContainerSensor, ordered),
		bus.OnWatcherStarted(func(ctx context.Context, watcher types.Watcher) error {
			return h.UpdateWatcherSensors(ctx, watcher, true)
		}, ordered),
		bus.OnWatcherStopped(func(ctx context.Context, watcher types.Watcher) error {
			return h.UpdateWatcherSensors(ctx, watcher, false)
		}, ordered),
	)
}

// Unsubscribe removes the event subscriptions.
func (h *Hass) Unsubscribe() {
	event.Unsubscribe(h.subs...)
	h.subs = nil
}

// discoveryTopic returns {prefix}/{kind}/{entity id}/config.
func (h *Hass) discoveryTopic(kind, stateTopic string) string {
	return h.prefix + "/" + kind + "/" + HassEntityID(stateTopic) + "/config"
}

// AddContainerSensor announces the update entity of container and refreshes the aggregates.
func (h *Hass) AddContainerSensor(ctx context.Context, container types.Container) error {
	stateTopic := ContainerTopic(h.topic, container)
	h.log.WithField("topic", stateTopic).Info("Add hass container update sensor")

	if h.discovery {
		options := map[string]any{
			"force_update":            true,
			"json_attributes_topic":   stateTopic,
			"latest_version_template": hassLatestVersionTmpl,
			"latest_version_topic":    stateTopic,
			"value_template":          hassEntityValueTmpl,
		}

		if container.Result != nil && container.Result.Link != "" {
			options["release_url"] = container.Result.Link
		}

		err := h.publishDiscovery(ctx, discovery{
			topic:      h.discoveryTopic(hassKindUpdate, stateTopic),
			stateTopic: stateTopic,
			name:       container.DisplayName,
			icon:       SanitizeIcon(container.DisplayIcon),
			options:    options,
		})
		if err != nil {
			return err
		}
	}

	return h.updateContainerSensors(ctx, container.Watcher)
}

// RemoveContainerSensor withdraws the update entity of container and refreshes the aggregates.
func (h *Hass) RemoveContainerSensor(ctx context.Context, container types.Container) error {
	stateTopic := ContainerTopic(h.topic, container)
	h.log.WithField("topic", stateTopic).Info("Remove hass container update sensor")

	if h.discovery {
		if err := h.removeSensor(ctx, h.discoveryTopic(hassKindUpdate, stateTopic)); err != nil {
			return err
		}
	}

	return h.updateContainerSensors(ctx, container.Watcher)
}

// UpdateWatcherSensors announces the running sensor of watcher and publishes its state.
func (h *Hass) UpdateWatcherSensors(ctx context.Context, watcher types.Watcher, running bool) error {
	stateTopic := h.topic + "/" + watcher.Name + "/" + hassTopicWatcherStatus

	if h.discovery {
		err := h.publishDiscovery(ctx, discovery{
			topic:      h.discoveryTopic(hassKindBinarySensor, stateTopic),
			stateTopic: stateTopic,
			name:       fmt.Sprintf("Watcher %s running status", watcher.Name),
			options:    binarySensorOptions(),
		})
		if err != nil {
			return err
		}
	}

	return h.publishState(ctx, stateTopic, strconv.FormatBool(running))
}

// aggregate is one count or status sensor.
type aggregate struct {
	kind       string
	stateTopic string
	name       string
	value      string
}

// updateContainerSensors recounts the global and per-watcher aggregates and publishes them.
func (h *Hass) updateContainerSensors(ctx context.Context, watcher string) error {
	total := len(h.store.Containers(types.ContainerFilter{}))
	updates := len(h.store.Containers(types.ContainerFilter{UpdateAvailable: types.Bool(true)}))
	watcherTotal := len(h.store.Containers(types.ContainerFilter{Watcher: types.String(watcher)}))
	watcherUpdates := len(h.store.Containers(types.ContainerFilter{
		Watcher:         types.String(watcher),
		UpdateAvailable: types.Bool(true),
	}))

	watcherTopic := h.topic + "/" + watcher
	watcherSensors := []aggregate{
		{
			kind:       hassKindSensor,
			stateTopic: watcherTopic + "/" + hassTopicTotalCount,
			name:       fmt.Sprintf("Watcher %s container count", watcher),
			value:      strconv.Itoa(watcherTotal),
		},
		{
			kind:       hassKindSensor,
			stateTopic: watcherTopic + "/" + hassTopicUpdateCount,
			name:       fmt.Sprintf("Watcher %s container update count", watcher),
			value:      strconv.Itoa(watcherUpdates),
		},
		{
			kind:       hassKindBinarySensor,
			stateTopic: watcherTopic + "/" + hassTopicUpdateStatus,
			name:       fmt.Sprintf("Watcher %s container update status", watcher),
			value:      strconv.FormatBool(watcherUpdates > 0),
		},
	}

	sensors := append([]aggregate{
		{
			kind:       hassKindSensor,
			stateTopic: h.topic + "/" + hassTopicTotalCount,
			name:       "Total container count",
			value:      strconv.Itoa(total),
		},
		{
			kind:       hassKindSensor,
			stateTopic: h.topic + "/" + hassTopicUpdateCount,
			name:       "Total container update count",
			value:      strconv.Itoa(updates),
		},
		{
			kind:       hassKindBinarySensor,
			stateTopic: h.topic + "/" + hassTopicUpdateStatus,
			name:       "Total container update status",
			value:      strconv.FormatBool(updates > 0),
		},
	}, watcherSensors...)

	if h.discovery {
		for _, sensor := range sensors {
			msg := discovery{
				topic:      h.discoveryTopic(sensor.kind, sensor.stateTopic),
				stateTopic: sensor.stateTopic,
				name:       sensor.name,
			}

			if sensor.kind == hassKindBinarySensor {
				msg.options = binarySensorOptions()
			}

			if err := h.publishDiscovery(ctx, msg); err != nil {
				return err
			}
		}
	}

	for _, sensor := range sensors {
		if err := h.publishState(ctx, sensor.stateTopic, sensor.value); err != nil {
			return err
		}
	}

	// Withdraw the entities of a watcher that no longer has containers.
	if watcherTotal == 0 && h.discovery {
		h.log.WithField("watcher", watcher).Debug("Remove hass watcher sensors")

		for _, sensor := range watcherSensors {
			if err := h.removeSensor(ctx, h.discoveryTopic(sensor.kind, sensor.stateTopic)); err != nil {
				return err
			}
		}
	}

	return nil
}

func binarySensorOptions() map[string]any {
	return map[string]any{
		"payload_on":  hassPayloadOn,
		"payload_off": hassPayloadOff,
	}
}

// publishDiscovery publishes a retained discovery payload.
func (h *Hass) publishDiscovery(ctx context.Context, msg discovery) error {
	entityID := HassEntityID(msg.stateTopic)

	payload := map[string]any{
		"device": device{
			Identifiers:  []string{hassDeviceID},
			Manufacturer: hassManufacturer,
			Model:        hassDeviceID,
			Name:         hassDeviceName,
			SWVersion:    h.version,
		},
		"entity_picture": hassEntityPicture,
		"icon":           msg.icon,
		"name":           msg.name,
		"object_id":      entityID,
		"state_topic":    msg.stateTopic,
		"unique_id":      entityID,
	}

	if msg.icon == "" {
		payload["icon"] = hassDefaultIcon
	}

	if msg.name == "" {
		payload["name"] = entityID
	}

	for key, value := range msg.options {
		payload[key] = value
	}

	// Map keys are marshaled in sorted order, so equal messages produce equal bytes.
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode discovery message for %s: %w", msg.topic, err)
	}

	return h.publish(ctx, msg.topic, raw)
}

// removeSensor publishes the empty retained payload that withdraws an entity.
func (h *Hass) removeSensor(ctx context.Context, topic string) error {
	return h.publish(ctx, topic, []byte(hassRemovePayload))
}

// publishState publishes a retained sensor value.
func (h *Hass) publishState(ctx context.Context, topic, value string) error {
	return h.publish(ctx, topic, []byte(value))
}

func (h *Hass) publish(ctx context.Context, topic string, payload []byte) error {
	if err := h.publisher.Publish(ctx, topic, payload, true); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	return nil
}
