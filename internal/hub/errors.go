package hub

import (
	"errors"
	"fmt"
)

// ErrNoNodesAvailable means no registered node is currently connected.
// It is retryable: a node coming back online clears it.
var ErrNoNodesAvailable = errors.New("no nodes available")

// ValidationError rejects malformed input before any side effect runs.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

var _ error = (*ValidationError)(nil)

// NotFoundError reports a lookup miss for a named resource, such as a
// node, a player, or an encoded track.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

var _ error = (*NotFoundError)(nil)
