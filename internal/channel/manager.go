package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fikri2992/remote-coding-extension-sub009/internal/envelope"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/health"
	"github.com/fikri2992/remote-coding-extension-sub009/internal/queue"
)

type callResult struct {
	data json.RawMessage
	err  error
}

// pendingCall waits for the response envelope matching one correlation id.
type pendingCall struct {
	ch    chan callResult
	timer *time.Timer
}

// Channel is the connection manager. One instance owns one socket, one
// outbound queue, and one pending-response map.
type Channel struct {
	cfg    Config
	logger *slog.Logger
	dial   Dialer

	// mu guards the state machine, the socket handle, and the pending map.
	// Socket and timer callbacks are serialized through it, replicating the
	// single-threaded event model this protocol assumes.
	mu             sync.Mutex
	state          State
	sock           Socket
	gen            int // bumps per dial; events from stale sockets are ignored
	attempt        int
	closing        bool
	reconnectTimer *time.Timer
	pending        map[string]*pendingCall

	out     *queue.Queue
	monitor *health.Monitor

	cbMu         sync.Mutex
	onMessage    []func(envelope.Envelope)
	onSend       []func(envelope.Envelope)
	onConnect    []func()
	onDisconnect []func()
	onError      []func(error)
	onHealth     []func(health.Health)
}

// New creates a channel for the configured endpoint. The channel starts
// disconnected; call Connect to open it.
func New(cfg Config, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	c := &Channel{
		cfg:     cfg,
		logger:  logger,
		dial:    DialWebSocket(cfg.WriteTimeout),
		state:   StateDisconnected,
		pending: make(map[string]*pendingCall),
		out:     queue.New(cfg.QueueCapacity, cfg.QueuePriorityAllowance, cfg.PriorityTypes, logger),
	}
	c.monitor = health.NewMonitor(cfg.Heartbeat, c.sendHeartbeat, c.emitHealth, logger)
	return c
}

// Connect transitions to connecting and opens the socket in the background.
// It returns once handlers are wired; connection success is signaled through
// OnConnect since opening is asynchronous and may fail. Idempotent while
// connecting or connected.
func (c *Channel) Connect(ctx context.Context) error {
	if c.cfg.URL == "" {
		return ErrNoURL
	}

	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateConnected, StateReconnecting:
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.closing = false
	c.attempt = 0
	c.mu.Unlock()

	go c.dialOnce(ctx)
	return nil
}

// Disconnect synchronously tears the channel down: cancels timers, rejects
// every pending response with ErrConnectionClosed, discards the queue, closes
// the socket with a clean-close code, and forces state to disconnected. The
// attempt counter is pinned to its maximum so no auto-reconnect follows.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	wasDisconnected := c.state == StateDisconnected
	c.closing = true
	c.gen++ // invalidate callbacks from the current socket
	sock := c.sock
	c.teardownLocked()
	c.attempt = c.cfg.Backoff.Limit()
	c.mu.Unlock()

	c.monitor.Stop()
	if sock != nil {
		sock.Close(websocket.CloseNormalClosure, "client disconnect")
	}
	if !wasDisconnected {
		c.logger.Info("channel disconnected")
		c.emitDisconnect()
	}
}

// Send validates and transmits a message, queueing it when the socket is not
// open. Messages sent while connected are written in call order; queued
// messages are flushed in enqueue order on reconnect, but no ordering holds
// across the disconnect boundary.
func (c *Channel) Send(env envelope.Envelope) error {
	if env.Timestamp == 0 {
		env.Timestamp = envelope.Now()
	}
	if err := env.Validate(); err != nil {
		c.emitError(fmt.Errorf("invalid outbound envelope: %w", err))
		return err
	}

	c.mu.Lock()
	sock := c.sock
	open := c.state == StateConnected && sock != nil
	c.mu.Unlock()

	if !open {
		return c.out.Enqueue(env)
	}

	data, err := env.Encode()
	if err != nil {
		return err
	}
	if err := sock.Send(data); err != nil {
		return err
	}
	c.emitSend(env)
	return nil
}

// SendWithResponse assigns a fresh correlation id, sends the message, and
// waits for the matching response envelope. A response carrying an error
// string rejects with that error; no response within the window rejects with
// a timeout error. Zero timeout uses the configured default.
func (c *Channel) SendWithResponse(ctx context.Context, env envelope.Envelope, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.cfg.ResponseTimeout
	}

	env.ID = envelope.NewCorrelationID()
	call := &pendingCall{ch: make(chan callResult, 1)}
	call.timer = time.AfterFunc(timeout, func() {
		c.failPending(env.ID, fmt.Errorf("no response within %s", timeout))
	})

	c.mu.Lock()
	c.pending[env.ID] = call
	c.mu.Unlock()

	if err := c.Send(env); err != nil {
		c.removePending(env.ID)
		call.timer.Stop()
		return nil, err
	}

	select {
	case res := <-call.ch:
		return res.data, res.err
	case <-ctx.Done():
		c.removePending(env.ID)
		call.timer.Stop()
		return nil, ctx.Err()
	}
}

// OnMessage registers a callback for application messages. Callbacks run
// synchronously in registration order; a panicking callback is recovered and
// logged without aborting delivery to the rest.
func (c *Channel) OnMessage(fn func(envelope.Envelope)) {
	c.cbMu.Lock()
	c.onMessage = append(c.onMessage, fn)
	c.cbMu.Unlock()
}

// OnSend registers a callback invoked after an application envelope is
// written to the socket. Heartbeats are not reported.
func (c *Channel) OnSend(fn func(envelope.Envelope)) {
	c.cbMu.Lock()
	c.onSend = append(c.onSend, fn)
	c.cbMu.Unlock()
}

// OnConnect registers a callback invoked when the socket opens.
func (c *Channel) OnConnect(fn func()) {
	c.cbMu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.cbMu.Unlock()
}

// OnDisconnect registers a callback invoked when the socket closes.
func (c *Channel) OnDisconnect(fn func()) {
	c.cbMu.Lock()
	c.onDisconnect = append(c.onDisconnect, fn)
	c.cbMu.Unlock()
}

// OnError registers a callback for validation and transport errors.
func (c *Channel) OnError(fn func(error)) {
	c.cbMu.Lock()
	c.onError = append(c.onError, fn)
	c.cbMu.Unlock()
}

// OnHealthChange registers a callback fired once per healthy transition.
func (c *Channel) OnHealthChange(fn func(health.Health)) {
	c.cbMu.Lock()
	c.onHealth = append(c.onHealth, fn)
	c.cbMu.Unlock()
}

// State returns the current lifecycle phase.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Health returns a snapshot of the heartbeat record.
func (c *Channel) Health() health.Health {
	return c.monitor.Snapshot()
}

// ConnectionInfo describes the channel for status surfaces.
func (c *Channel) ConnectionInfo() ConnectionInfo {
	c.mu.Lock()
	info := ConnectionInfo{
		URL:     c.cfg.URL,
		State:   c.state,
		Attempt: c.attempt,
	}
	c.mu.Unlock()

	info.QueueDepth = c.out.Len()
	info.Health = c.monitor.Snapshot()
	return info
}

// Config returns the effective configuration.
func (c *Channel) Config() Config {
	return c.cfg
}

// ClearQueue discards all queued outbound messages and returns the count.
func (c *Channel) ClearQueue() int {
	return c.out.Clear()
}

// QueueDepth returns the number of messages waiting for the socket.
func (c *Channel) QueueDepth() int {
	return c.out.Len()
}

// QueueDropped returns how many outbound messages have been rejected or
// silently dropped so far.
func (c *Channel) QueueDropped() int64 {
	return c.out.Dropped()
}

// SetQueueCapacity adjusts the outbound queue bound at runtime. The mobile
// adaptation layer uses this to shrink the queue on constrained links.
func (c *Channel) SetQueueCapacity(n int) {
	c.out.SetCapacity(n)
}

// dialOnce opens one socket under a fresh generation.
func (c *Channel) dialOnce(ctx context.Context) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	url := c.cfg.URL
	token := c.cfg.Token
	c.mu.Unlock()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	ev := SocketEvents{
		OnMessage: func(data []byte) { c.handleMessage(gen, data) },
		OnClose:   func(code int, reason string) { c.handleClose(gen, code, reason) },
		OnError:   func(err error) { c.handleError(gen, err) },
	}

	sock, err := c.dial(dctx, url, header, ev)
	if err != nil {
		c.logger.Warn("dial failed", "url", url, "error", err)
		c.emitError(fmt.Errorf("dial %s: %w", url, err))
		c.scheduleRetry(gen)
		return
	}

	c.mu.Lock()
	if c.closing || gen != c.gen {
		c.mu.Unlock()
		sock.Close(websocket.CloseNormalClosure, "superseded")
		return
	}
	c.sock = sock
	c.state = StateConnected
	c.attempt = 0
	c.mu.Unlock()

	c.monitor.Reset()
	c.monitor.Start()
	go c.flushQueue(gen)

	c.logger.Info("channel connected", "url", url)
	c.emitConnect()
}

// handleClose reacts to the socket closing. A clean close (code 1000) or a
// close during Disconnect tears down; anything else schedules a retry.
func (c *Channel) handleClose(gen int, code int, reason string) {
	c.mu.Lock()
	if gen != c.gen || c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}

	if code == websocket.CloseNormalClosure || c.closing {
		c.teardownLocked()
		c.mu.Unlock()

		c.monitor.Stop()
		c.logger.Info("channel closed by peer", "code", code, "reason", reason)
		c.emitDisconnect()
		return
	}
	c.mu.Unlock()

	c.logger.Warn("connection lost", "code", code, "reason", reason)
	c.scheduleRetry(gen) // settle the next state before notifying
	c.emitDisconnect()
}

// handleError reacts to socket-level errors. The connection state is left
// alone unless the retry budget is already spent, in which case the channel
// parks in the error state.
func (c *Channel) handleError(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.cfg.Backoff.Exhausted(c.attempt) && c.state != StateDisconnected {
		c.state = StateError
	}
	c.mu.Unlock()

	c.monitor.RecordFailure()
	c.emitError(err)
}

// scheduleRetry counts the attempt and either arms the backoff timer or, with
// the budget spent, parks the channel in the error state.
func (c *Channel) scheduleRetry(gen int) {
	c.mu.Lock()
	if c.closing || gen != c.gen {
		c.mu.Unlock()
		return
	}

	c.attempt++
	attempt := c.attempt
	c.sock = nil

	if c.cfg.Backoff.Exhausted(attempt) {
		c.state = StateError
		c.mu.Unlock()

		c.monitor.Stop()
		c.monitor.MarkUnhealthy()
		err := fmt.Errorf("reconnect attempts exhausted after %d attempts", attempt)
		c.logger.Error("giving up on reconnection", "attempts", attempt)
		c.emitError(err)
		return
	}

	c.state = StateReconnecting
	delay := c.cfg.Backoff.Delay(attempt)
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.dialOnce(context.Background())
	})
	c.mu.Unlock()

	c.monitor.Stop()
	c.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
}

// teardownLocked moves to disconnected and releases every waiter. Caller
// holds mu.
func (c *Channel) teardownLocked() {
	c.state = StateDisconnected
	c.sock = nil
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	for id, call := range c.pending {
		call.timer.Stop()
		call.ch <- callResult{err: ErrConnectionClosed}
		delete(c.pending, id)
	}
	c.out.Clear()
}

// handleMessage is the received-frame dispatch: validate, intercept
// heartbeats, correlate responses, then broadcast.
func (c *Channel) handleMessage(gen int, data []byte) {
	c.mu.Lock()
	stale := gen != c.gen
	c.mu.Unlock()
	if stale {
		return
	}

	env, err := envelope.Decode(data)
	if err != nil {
		c.logger.Warn("dropping invalid frame", "error", err)
		c.emitError(err)
		return
	}

	switch env.Type {
	case envelope.TypePing:
		c.replyPong(env.Timestamp)
		return
	case envelope.TypePong:
		c.monitor.HandlePong(env.Timestamp)
		return
	case envelope.TypeResponse:
		if env.ID != "" && c.resolvePending(env) {
			return
		}
		// A response nobody is waiting for falls through to subscribers.
	}

	c.emitMessage(env)
}

// replyPong answers a peer heartbeat, echoing its timestamp.
func (c *Channel) replyPong(echoedTimestamp int64) {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return
	}

	data, err := envelope.NewPong(echoedTimestamp).Encode()
	if err != nil {
		return
	}
	if err := sock.Send(data); err != nil {
		c.logger.Debug("pong reply failed", "error", err)
	}
}

// resolvePending completes the pending call matching the response's id.
func (c *Channel) resolvePending(env envelope.Envelope) bool {
	c.mu.Lock()
	call, ok := c.pending[env.ID]
	delete(c.pending, env.ID)
	c.mu.Unlock()

	if !ok {
		return false
	}

	call.timer.Stop()
	if env.Error != "" {
		call.ch <- callResult{err: errors.New(env.Error)}
	} else {
		call.ch <- callResult{data: env.Data}
	}
	return true
}

func (c *Channel) failPending(id string, err error) {
	c.mu.Lock()
	call, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if ok {
		call.ch <- callResult{err: err}
	}
}

func (c *Channel) removePending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// pendingCount is used by tests and status surfaces.
func (c *Channel) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// sendHeartbeat writes a ping envelope directly, bypassing the queue.
func (c *Channel) sendHeartbeat() error {
	c.mu.Lock()
	sock := c.sock
	open := c.state == StateConnected && sock != nil
	c.mu.Unlock()

	if !open {
		return ErrConnectionClosed
	}
	data, err := envelope.NewPing().Encode()
	if err != nil {
		return err
	}
	return sock.Send(data)
}

// flushQueue drains queued messages front-to-back after a reconnect. A send
// failure requeues the message until its retry budget is spent, after which
// it is dropped with only a log line. When pacing is configured, a delay is
// inserted between sends to avoid overwhelming a degraded link.
func (c *Channel) flushQueue(gen int) {
	for {
		c.mu.Lock()
		sock := c.sock
		open := gen == c.gen && c.state == StateConnected && sock != nil
		c.mu.Unlock()
		if !open {
			return
		}

		item, ok := c.out.Pop()
		if !ok {
			return
		}

		data, err := item.Env.Encode()
		if err == nil {
			err = sock.Send(data)
		}
		if err != nil {
			c.out.Requeue(item) // drops at the retry ceiling
			time.Sleep(10 * time.Millisecond)
			continue
		}
		c.emitSend(item.Env)

		if c.cfg.DrainPace != nil {
			if d := c.cfg.DrainPace(); d > 0 {
				time.Sleep(d)
			}
		}
	}
}

func (c *Channel) emitMessage(env envelope.Envelope) {
	c.cbMu.Lock()
	subs := append(([]func(envelope.Envelope))(nil), c.onMessage...)
	c.cbMu.Unlock()

	for _, fn := range subs {
		c.invoke(func() { fn(env) })
	}
}

func (c *Channel) emitSend(env envelope.Envelope) {
	c.cbMu.Lock()
	subs := append(([]func(envelope.Envelope))(nil), c.onSend...)
	c.cbMu.Unlock()

	for _, fn := range subs {
		c.invoke(func() { fn(env) })
	}
}

func (c *Channel) emitConnect() {
	c.cbMu.Lock()
	subs := append(([]func())(nil), c.onConnect...)
	c.cbMu.Unlock()

	for _, fn := range subs {
		c.invoke(fn)
	}
}

func (c *Channel) emitDisconnect() {
	c.cbMu.Lock()
	subs := append(([]func())(nil), c.onDisconnect...)
	c.cbMu.Unlock()

	for _, fn := range subs {
		c.invoke(fn)
	}
}

func (c *Channel) emitError(err error) {
	c.cbMu.Lock()
	subs := append(([]func(error))(nil), c.onError...)
	c.cbMu.Unlock()

	for _, fn := range subs {
		c.invoke(func() { fn(err) })
	}
}

func (c *Channel) emitHealth(h health.Health) {
	c.cbMu.Lock()
	subs := append(([]func(health.Health))(nil), c.onHealth...)
	c.cbMu.Unlock()

	for _, fn := range subs {
		c.invoke(func() { fn(h) })
	}
}

// invoke shields the dispatch loop from panicking subscribers.
func (c *Channel) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("subscriber panic", "panic", r)
		}
	}()
	fn()
}
