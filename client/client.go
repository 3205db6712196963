// Package client is a Go client for the relay wire format.
package client

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultBufferSize = 64

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	BufferSize       int
}

// Client holds one relay connection. Every frame received from the relay is
// pushed to Messages; the channel is closed when the connection ends.
type Client struct {
	cfg  Config
	log  *slog.Logger
	conn *websocket.Conn

	messages chan domain.Frame
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the relay websocket endpoint, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, cfg.URL, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	c := &Client{
		cfg:      cfg,
		log:      log,
		conn:     conn,
		messages: make(chan domain.Frame, cfg.BufferSize),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	log.Debug("Connected to relay", "url", cfg.URL)
	return c, nil
}

// Messages returns every frame received from the relay.
func (c *Client) Messages() <-chan domain.Frame {
	return c.messages
}

// SendGroup sends data to group, joining it on the way.
func (c *Client) SendGroup(group string, data any) error {
	return c.sendEnvelope(domain.GroupName(group), data)
}

// Broadcast sends data to every connection of the relay.
func (c *Client) Broadcast(data any) error {
	return c.sendEnvelope("", data)
}

// SendBinary relays raw bytes to every other connection.
func (c *Client) SendBinary(payload []byte) error {
	return c.write(websocket.BinaryMessage, payload)
}

// SendRaw writes a text frame as is, valid envelope or not.
func (c *Client) SendRaw(payload []byte) error {
	return c.write(websocket.TextMessage, payload)
}

func (c *Client) sendEnvelope(group domain.GroupName, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	payload, err := domain.Envelope{Group: group, Data: raw}.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *Client) write(messageType int, payload []byte) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, payload)
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.messages)
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Debug("Relay connection ended", "error", err)
			}
			return
		}
		frame := domain.TextFrame(data)
		if messageType == websocket.BinaryMessage {
			frame = domain.BinaryFrame(data)
		}
		select {
		case c.messages <- frame:
		case <-c.done:
			return
		}
	}
}
