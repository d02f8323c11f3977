package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reserved protocol-internal message types.
const (
	TypePing     = "ping"
	TypePong     = "pong"
	TypeResponse = "response"
)

// Validation errors.
var (
	ErrMissingType      = errors.New("envelope missing type")
	ErrMissingTimestamp = errors.New("envelope missing timestamp")
	ErrNotHeartbeat     = errors.New("envelope is not a heartbeat")
)

// Envelope is a single wire frame.
//
// ID is present only on messages that expect a correlated response.
// Timestamp is always set before transmission; New injects it when the
// caller leaves it zero.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
}

// New builds an envelope of the given type, marshaling data as the payload.
// A nil data leaves the payload empty.
func New(msgType string, data any) (Envelope, error) {
	env := Envelope{
		Type:      msgType,
		Timestamp: Now(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal payload: %w", err)
		}
		env.Data = raw
	}
	return env, nil
}

// NewPing returns a heartbeat probe carrying the current timestamp.
func NewPing() Envelope {
	return Envelope{Type: TypePing, Timestamp: Now()}
}

// NewPong returns a heartbeat reply echoing the ping's timestamp, which the
// sender uses to compute round-trip latency.
func NewPong(echoedTimestamp int64) Envelope {
	return Envelope{Type: TypePong, Timestamp: echoedTimestamp}
}

// NewCorrelationID returns a fresh id for request/response matching.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Now returns the current time in unix milliseconds, the timestamp unit used
// on the wire.
func Now() int64 {
	return time.Now().UnixMilli()
}

// Validate checks the generic frame invariants: a non-empty type and a set
// timestamp. It is a pure predicate with no side effects.
func (e Envelope) Validate() error {
	if e.Type == "" {
		return ErrMissingType
	}
	if e.Timestamp == 0 {
		return ErrMissingTimestamp
	}
	return nil
}

// ValidateHeartbeat checks the stricter shape required of ping/pong frames.
func (e Envelope) ValidateHeartbeat() error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Type != TypePing && e.Type != TypePong {
		return ErrNotHeartbeat
	}
	return nil
}

// IsHeartbeat reports whether the frame is protocol-internal ping/pong
// traffic that must never reach application subscribers.
func (e Envelope) IsHeartbeat() bool {
	return e.Type == TypePing || e.Type == TypePong
}

// Encode serializes the envelope to its wire form.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses and validates a received frame. Malformed input is returned
// as an error, never panicked on; the caller converts it into an error signal
// and drops the frame.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
