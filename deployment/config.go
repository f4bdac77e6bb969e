package deployment

import (
	"fmt"
	"strings"
)

// Config holds the deployment settings of one network, keyed by their environment variable
// names. It is loaded once when the process starts and passed explicitly to the orchestrator.
type Config map[string]string

// Get returns the trimmed value for key and whether it is set to a non blank value.
func (c Config) Get(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)

	return v, v != ""
}

// Require returns the value for key or a *ConfigurationError when it is missing or blank.
func (c Config) Require(key string) (string, error) {
	v, ok := c.Get(key)
	if !ok {
		return "", &ConfigurationError{Key: key}
	}

	return v, nil
}

// ConfigurationError reports a required setting that is missing. It is always returned before
// any deployment is attempted, so no on-chain side effect has happened.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration %s", e.Key)
}
