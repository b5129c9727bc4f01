package trigger

import "errors"

// Error taxonomy of the trigger subsystem. Providers wrap these sentinels so callers
// can classify failures with errors.Is.
var (
	// ErrConfiguration indicates a configuration that failed decoding or validation.
	ErrConfiguration = errors.New("invalid trigger configuration")
	// ErrInitialization indicates a provider that could not complete its setup.
	ErrInitialization = errors.New("trigger initialization failed")
	// ErrDelivery indicates a transport failure while delivering a notification.
	ErrDelivery = errors.New("trigger delivery failed")
	// ErrUnsupported indicates an operation the provider never supports.
	ErrUnsupported = errors.New("operation not supported by trigger")
)

var (
	// errUnknownType indicates a configuration for a provider type that is not registered.
	errUnknownType = errors.New("unknown trigger type")
	// errTemplate indicates a title or body template that failed to parse or execute.
	errTemplate = errors.New("trigger template error")
)
