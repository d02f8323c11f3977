package channel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsSocket is the gorilla/websocket-backed Socket.
type wsSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// Write serialization
	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// DialWebSocket opens a gorilla-backed socket and starts its read loop.
// Close codes observed on the wire are forwarded to ev.OnClose; read errors
// without a close frame surface as OnError followed by an abnormal OnClose.
func DialWebSocket(writeTimeout time.Duration) Dialer {
	return func(ctx context.Context, url string, header http.Header, ev SocketEvents) (Socket, error) {
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}

		conn, _, err := dialer.DialContext(ctx, url, header)
		if err != nil {
			return nil, err
		}

		s := &wsSocket{
			conn:         conn,
			writeTimeout: writeTimeout,
			done:         make(chan struct{}),
		}
		go s.readLoop(ev)
		return s, nil
	}
}

// Send writes one text frame under a write deadline.
func (s *wsSocket) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrConnectionClosed
	}
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and tears down the connection. Events stop after
// the first Close.
func (s *wsSocket) Close(code int, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.writeMu.Lock()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()

	return s.conn.Close()
}

func (s *wsSocket) readLoop(ev SocketEvents) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Suppress events after a local Close.
			select {
			case <-s.done:
				return
			default:
			}

			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				if ev.OnClose != nil {
					ev.OnClose(ce.Code, ce.Text)
				}
				return
			}

			if ev.OnError != nil {
				ev.OnError(err)
			}
			if ev.OnClose != nil {
				ev.OnClose(websocket.CloseAbnormalClosure, err.Error())
			}
			return
		}

		if ev.OnMessage != nil {
			ev.OnMessage(data)
		}
	}
}
