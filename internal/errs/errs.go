// internal/errs/errs.go
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Category classifies an error by how far it is allowed to propagate.
type Category string

const (
	// CategoryAssertion marks an observed value that did not satisfy a predicate.
	// It is recorded as a failed check and never aborts anything.
	CategoryAssertion Category = "assertion"
	// CategoryResource covers browser, context and page provisioning or release.
	CategoryResource Category = "resource"
	// CategoryNetwork covers refused connections and timeouts on API calls.
	CategoryNetwork Category = "network"
	// CategoryConfiguration covers missing or malformed target settings. Fatal at startup.
	CategoryConfiguration Category = "configuration"
	// CategoryUnknown is anything not raised through this package.
	CategoryUnknown Category = "unknown"
)

// AssertionFailure reports an observation that did not satisfy a check.
type AssertionFailure struct {
	Check   string
	Message string
}

func (e *AssertionFailure) Error() string {
	return fmt.Sprintf("assertion %q failed: %s", e.Check, e.Message)
}

// ResourceError reports a browser, context or page that could not be created or released.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resource error during %s", e.Op)
	}
	return fmt.Sprintf("resource error during %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NetworkError reports a connection failure or timeout against the API under test.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the underlying failure was a deadline expiry.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ConfigurationError reports a missing or malformed setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Key, e.Reason)
}

// Resource wraps err as a ResourceError for the named operation.
func Resource(op string, err error) error {
	return &ResourceError{Op: op, Err: err}
}

// Network wraps err as a NetworkError for the given request.
func Network(method, url string, err error) error {
	return &NetworkError{Method: method, URL: url, Err: err}
}

// Config builds a ConfigurationError.
func Config(key, format string, args ...interface{}) error {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// Kind classifies err by walking its wrap chain.
func Kind(err error) Category {
	var (
		af *AssertionFailure
		re *ResourceError
		ne *NetworkError
		ce *ConfigurationError
	)
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.As(err, &ce):
		return CategoryConfiguration
	case errors.As(err, &re):
		return CategoryResource
	case errors.As(err, &ne):
		return CategoryNetwork
	case errors.As(err, &af):
		return CategoryAssertion
	default:
		return CategoryUnknown
	}
}
