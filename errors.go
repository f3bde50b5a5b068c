package gbili

import "fmt"

// ConfigError indicates an invalid engine configuration relative to the
// data set. It is detected before any worker starts; a run that returns a
// ConfigError has produced no output.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gbili: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}
