// Package mqtt implements a trigger that publishes container state to an MQTT broker.
//
// Every added or updated container is published, retained, as flattened JSON to
// {topic}/{watcher}/{name}. When Home-Assistant integration is enabled, a Hass
// synchronizer keeps discovery entities and aggregate sensors on the broker in
// line with the container store.
//
// The provider only supports simple mode; TriggerBatch always fails.
package mqtt
