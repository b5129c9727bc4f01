// Package config collects trigger settings from the environment.
//
// Variables named WUD_TRIGGER_{TYPE}_{NAME}_{KEY} are grouped by provider type and
// instance name. Further underscores in KEY nest the setting, so
// WUD_TRIGGER_MQTT_HOME_TLS_CACHAIN becomes mqtt.home.tls.cachain. A variable ending
// in __FILE is replaced by the content of the file it points to. A broken variable
// excludes only the instance it belongs to.
package config
