package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// ErrInput is returned by a node when its dataset or the request fails a
	// privacy guard (too few records, disallowed or missing column).
	ErrInput = errors.New("input error")
	// ErrConfiguration is returned by a node when its local policy cannot be
	// applied (unknown noise mechanism, invalid signal-to-noise ratio).
	ErrConfiguration = errors.New("configuration error")
	// ErrPrivacyThresholdViolation is returned by the coordinator before any
	// dispatch when too few nodes take part in a run.
	ErrPrivacyThresholdViolation = errors.New("privacy threshold violation")
)

// Kind names the error class carried over the wire by a node result.
type Kind string

const (
	KindInput         Kind = "input"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// KindOf classifies err for transport.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInput):
		return KindInput
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// NodeError attributes a failure to the node that reported it.
type NodeError struct {
	NodeID int
	Kind   Kind
	Msg    string
}

func NewNodeError(nodeID int, kind Kind, msg string) *NodeError {
	return &NodeError{NodeID: nodeID, Kind: kind, Msg: msg}
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %d: %s", e.NodeID, e.Msg)
}

func (e *NodeError) Unwrap() error {
	switch e.Kind {
	case KindInput:
		return ErrInput
	case KindConfiguration:
		return ErrConfiguration
	default:
		return nil
	}
}
