package ws

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Options tune every accepted connection.
type Options struct {
	OutboundQueueSize int
	WriteTimeout      time.Duration
	// PingInterval enables keepalive pings when positive. A peer that stops
	// answering for PongWait is considered gone.
	PingInterval   time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

// Connection adapts a websocket to contract.Conn.
// Send only enqueues; a single writer goroutine drains the queue so a slow
// peer never blocks the goroutine that routes frames to it.
type Connection struct {
	id       domain.ConnID
	ws       *websocket.Conn
	log      *slog.Logger
	opts     Options
	outbound chan domain.Frame
	done     chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

func NewConnection(ws *websocket.Conn, log *slog.Logger, opts Options) *Connection {
	id := domain.NewConnID()
	c := &Connection{
		id:       id,
		ws:       ws,
		log:      log.With("conn_id", id),
		opts:     opts,
		outbound: make(chan domain.Frame, opts.OutboundQueueSize),
		done:     make(chan struct{}),
	}

	if opts.MaxMessageSize > 0 {
		ws.SetReadLimit(opts.MaxMessageSize)
	}
	if opts.PingInterval > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		})
	}

	go c.writeLoop()
	return c
}

func (c *Connection) ID() domain.ConnID {
	return c.id
}

// Send queues frame for delivery without blocking.
func (c *Connection) Send(frame domain.Frame) error {
	if c.closed.Load() {
		return errors.ErrConnectionClosed
	}
	select {
	case c.outbound <- frame:
		return nil
	default:
		return fmt.Errorf("%w: %d frames pending", errors.ErrOutboundQueueFull, len(c.outbound))
	}
}

// Receive blocks until the next data frame. Control frames are handled by
// the websocket library; a close frame surfaces as an error.
func (c *Connection) Receive() (domain.Frame, error) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return domain.Frame{}, errors.ErrConnectionClosed
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Unexpected websocket close", "error", err)
			}
			return domain.Frame{}, err
		}
		if c.opts.PingInterval > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		}
		switch messageType {
		case websocket.TextMessage:
			return domain.TextFrame(data), nil
		case websocket.BinaryMessage:
			return domain.BinaryFrame(data), nil
		}
	}
}

func (c *Connection) IsOpen() bool {
	return !c.closed.Load()
}

// Close stops the writer, which sends a close frame and releases the socket.
// Frames still queued are dropped. Close is idempotent.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
	return nil
}

func (c *Connection) writeLoop() {
	var ping <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer func() {
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteTimeout),
			)
			return
		case frame := <-c.outbound:
			if err := c.write(frame); err != nil {
				c.log.Debug("Write failed, closing connection", "kind", frame.Kind, "error", err)
				_ = c.Close()
				return
			}
		case <-ping:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.log.Debug("Ping failed, closing connection", "error", err)
				_ = c.Close()
				return
			}
		}
	}
}

func (c *Connection) write(frame domain.Frame) error {
	messageType := websocket.TextMessage
	if frame.IsBinary() {
		messageType = websocket.BinaryMessage
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, frame.Payload)
}
