package mqtt

import "errors"

var (
	// errConnect indicates the broker connection could not be established.
	errConnect = errors.New("failed to connect to mqtt broker")
	// errTimeout indicates the broker did not complete an operation in time.
	errTimeout = errors.New("mqtt operation timed out")
	// errNotConnected indicates a publish before Init or after Close.
	errNotConnected = errors.New("mqtt client not connected")
	// errTLSMaterial indicates unreadable or invalid certificate files.
	errTLSMaterial = errors.New("invalid mqtt tls material")
	// errBrokerURL indicates a broker url that cannot be converted for the client.
	errBrokerURL = errors.New("invalid mqtt broker url")
	// errNoStore indicates Home-Assistant integration without a container store to count from.
	errNoStore = errors.New("home-assistant integration requires a container store")
)
