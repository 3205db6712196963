package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"io"
	"sync"
)

// fakeConn is an in-memory connection. Frames pushed to inbound are
// returned by Receive, frames sent by the relay are kept in order.
type fakeConn struct {
	id      domain.ConnID
	inbound chan domain.Frame

	mu     sync.Mutex
	sent   []domain.Frame
	closed bool
	done   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		id:      domain.NewConnID(),
		inbound: make(chan domain.Frame, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ID() domain.ConnID { return c.id }

func (c *fakeConn) Send(frame domain.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrConnectionClosed
	}
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Receive() (domain.Frame, error) {
	select {
	case frame := <-c.inbound:
		return frame, nil
	case <-c.done:
		return domain.Frame{}, io.EOF
	}
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeConn) Sent() []domain.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Frame(nil), c.sent...)
}

func (c *fakeConn) SentPayloads() []string {
	var payloads []string
	for _, f := range c.Sent() {
		payloads = append(payloads, string(f.Payload))
	}
	return payloads
}
