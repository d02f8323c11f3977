package channel

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/backoff"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/health"
)

// Errors
var (
	ErrNoURL            = errors.New("endpoint url required")
	ErrConnectionClosed = errors.New("connection closed")
)

// State is the connection lifecycle phase, owned exclusively by the Channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
)

// SocketEvents are the callbacks a Socket delivers transport events through.
// A socket invokes them from its own read goroutine; no two callbacks run
// concurrently for one socket.
type SocketEvents struct {
	OnMessage func(data []byte)
	OnClose   func(code int, reason string)
	OnError   func(err error)
}

// Socket is the transport primitive the Channel drives.
type Socket interface {
	// Send writes one text frame.
	Send(data []byte) error

	// Close sends a close frame with the given status code and tears the
	// connection down. Safe to call repeatedly.
	Close(code int, reason string) error
}

// Dialer opens a Socket. The default is the gorilla/websocket implementation;
// tests substitute their own.
type Dialer func(ctx context.Context, url string, header http.Header, ev SocketEvents) (Socket, error)

// Config configures a Channel.
type Config struct {
	// URL is the WebSocket endpoint (e.g. wss://host/channel).
	URL string

	// Token, when set, is sent as a bearer Authorization header on dial.
	Token string

	// DialTimeout bounds the WebSocket handshake.
	DialTimeout time.Duration

	// WriteTimeout is the per-frame write deadline.
	WriteTimeout time.Duration

	// ResponseTimeout is the default window for SendWithResponse when the
	// caller passes zero.
	ResponseTimeout time.Duration

	// QueueCapacity bounds the outbound queue while disconnected.
	QueueCapacity int

	// QueuePriorityAllowance is the extra room priority types may use.
	QueuePriorityAllowance int

	// PriorityTypes are message types inserted at the head of the queue.
	PriorityTypes []string

	// Backoff computes reconnect delays.
	Backoff backoff.Policy

	// Heartbeat tunes the health monitor.
	Heartbeat health.Config

	// DrainPace, when set, returns the delay inserted between sends while
	// flushing the queue after a reconnect. Zero means full speed.
	DrainPace func() time.Duration
}

// DefaultConfig returns a config with production defaults for the given
// endpoint.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		DialTimeout:     10 * time.Second,
		WriteTimeout:    5 * time.Second,
		ResponseTimeout: 30 * time.Second,
		QueueCapacity:   100,
		Backoff: backoff.Policy{
			Base:        time.Second,
			Max:         30 * time.Second,
			MaxAttempts: 10,
		},
	}
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 30 * time.Second
	}
	return c
}

// ConnectionInfo describes the channel for status surfaces.
type ConnectionInfo struct {
	URL        string        `json:"url"`
	State      State         `json:"state"`
	Attempt    int           `json:"attempt"`
	QueueDepth int           `json:"queue_depth"`
	Health     health.Health `json:"health"`
}
