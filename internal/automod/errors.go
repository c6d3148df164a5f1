package automod

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when an entity reference or directive parameter cannot be parsed.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrNotFound is returned when a referenced entity cannot be resolved at action time.
	ErrNotFound = errors.New("entity not found")
	// ErrForbidden is returned when the platform rejects an action due to missing permissions.
	ErrForbidden = errors.New("action forbidden")
	// ErrUnknownDirective is returned for response lines with an unrecognized verb.
	ErrUnknownDirective = errors.New("unknown command")
	// ErrDeliveryFailed is returned when a channel message or DM could not be delivered.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// ConfigurationError describes a user mistake in a guild configuration document.
// It aborts only the reconfiguration in progress; the guild keeps its previous state.
type ConfigurationError struct {
	// Path locates the offending value, e.g. "RegexModerator[2].Whitelist".
	Path string
	// Message is a short, user-facing explanation.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// NewConfigurationError creates a ConfigurationError for the given path.
func NewConfigurationError(path, message string, err error) *ConfigurationError {
	return &ConfigurationError{Path: path, Message: message, Err: err}
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
