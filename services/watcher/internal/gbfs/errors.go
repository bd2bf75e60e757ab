package gbfs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConfigurationError reports a bad setting detected before any network call.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %q: %s", e.Setting, e.Value, e.Reason)
}

// FetchError reports a transport failure, timeout or non-2xx response.
type FetchError struct {
	Feed       Feed
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.Feed, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): unexpected status %s", e.Feed, e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// MalformedFeedError reports a payload that does not have the expected shape.
type MalformedFeedError struct {
	Feed   Feed
	Reason string
	Err    error
}

func (e *MalformedFeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s feed: %s: %v", e.Feed, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s feed: %s", e.Feed, e.Reason)
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}
