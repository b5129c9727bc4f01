package event

import "errors"

// errUnexpectedPayload indicates a handler received a payload of the wrong type for its kind.
var errUnexpectedPayload = errors.New("unexpected event payload")
