package flagspace

import "fmt"

// ConfigError reports a malformed space declaration or registration, such as
// an empty name list, a duplicate name, or mismatched parallel lists. It is
// raised at setup time and is not recoverable automatically.
type ConfigError struct {
	Message string
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return e.Message
}

// UnknownFlagError reports a reference to a flag that does not exist: a name
// absent from the space, or a bit combination with no registered binding.
// Exactly one of Name or Flag is set, depending on how the flag was
// referenced.
type UnknownFlagError struct {
	Name string
	Flag Flag
}

// Error implements the error interface for UnknownFlagError.
func (e *UnknownFlagError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown flag %q", e.Name)
	}
	return fmt.Sprintf("unknown flag 0x%x", uint64(e.Flag))
}
