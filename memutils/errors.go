package memutils

import "github.com/pkg/errors"

// ErrInvalidRequest is returned when a request has no segments, a non-positive segment size, or an
// unknown placement strategy. Requests that fail with this error never mutate allocator state.
var ErrInvalidRequest error = errors.New("invalid memory request")

// ErrAllocationExhausted is returned when neither placement nor eviction can satisfy some segment of a
// request. The request is rolled back before this error is returned.
var ErrAllocationExhausted error = errors.New("memory exhausted and no process left to evict")

// ErrNoSuchProcess is returned when a process that was expected to own segments owns none
var ErrNoSuchProcess error = errors.New("process has no allocated segments")
