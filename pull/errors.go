package pull

import "fmt"

// ConfigurationError reports missing or malformed adapter options.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ProducerError wraps an error raised by the producer during a pull.
// The adapter that returned it is closed.
type ProducerError struct {
	// Pull is the 1-based number of the Next call that failed
	Pull uint64
	Err  error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer failed on pull %d: %v", e.Pull, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}
