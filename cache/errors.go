package cache

import (
	"errors"
	"fmt"
)

// ErrProducerPanic is wrapped by a RefreshError when the producer panicked.
var ErrProducerPanic = errors.New("cache: producer panicked")

// RefreshError reports a failed producer invocation to the reader that
// triggered it. Readers inside the same TTL window get no error.
type RefreshError struct {
	Name string
	Err  error
}

func (e *RefreshError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("cache: refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("cache %q: refresh failed: %v", e.Name, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
