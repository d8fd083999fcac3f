// Package transport carries frames between the agent and its peers: the
// relay websocket and the telemetry bus.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by a Conn once the peer or the agent has closed it.
var ErrClosed = errors.New("connection closed")

// Conn is one bidirectional frame connection.
// ReadMessage must only be called from one goroutine; WriteMessage is safe
// for concurrent use.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens a new Conn to the relay.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
