package config

import "errors"

var (
	// errReadSecretFile indicates a __FILE variable whose file could not be read.
	errReadSecretFile = errors.New("failed to read secret file")
	// errConflictingKeys indicates a setting used both as a value and as a parent of nested settings.
	errConflictingKeys = errors.New("conflicting trigger settings")
)
