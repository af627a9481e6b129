package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrData is the sentinel wrapped by every DataError.
	ErrData = errors.New("data error")
)

// ConfigurationError reports an invalid risk or run parameter. A run with an
// invalid configuration never starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataError reports an unusable bar sequence. Index is the offending bar, or
// -1 when the error concerns the sequence as a whole.
type DataError struct {
	Index     int
	Timestamp time.Time
	Reason    string
}

func (e *DataError) Error() string {
	if e.Index < 0 {
		return "data error: " + e.Reason
	}
	return fmt.Sprintf("data error: bar %d (%s): %s", e.Index, e.Timestamp.Format(time.RFC3339), e.Reason)
}

func (e *DataError) Unwrap() error { return ErrData }
