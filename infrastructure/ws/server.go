// Package ws exposes the relay over WebSocket: the HTTP upgrade handler is
// the accept step, Connection is the per-client endpoint.
package ws

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Acceptor runs a connection until it is done.
type Acceptor interface {
	Handle(ctx context.Context, conn contract.Conn)
}

type RelayServer struct {
	log      *slog.Logger
	acceptor Acceptor
	upgrader websocket.Upgrader
	opts     Options
}

func NewRelayServer(log *slog.Logger, acceptor Acceptor, opts Options, bufferSize int) *RelayServer {
	return &RelayServer{
		log:      log,
		acceptor: acceptor,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			// No authentication and no origin policy: any page may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and blocks for the connection lifetime.
func (s *RelayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.log.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn := NewConnection(ws, s.log, s.opts)
	s.log.Debug("Websocket upgraded", "remote", r.RemoteAddr, "conn_id", conn.ID())
	s.acceptor.Handle(r.Context(), conn)
}
