// Package runtime owns the relay state: live connections, group membership,
// the routing policy and the per-connection lifecycle.
// It holds no transport code.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

// Lifecycle drives one connection from accept to teardown.
type Lifecycle struct {
	log      *slog.Logger
	registry contract.IRegistry
	groups   contract.IGroupTable
	router   contract.IRouter
	monitor  *observability.RelayMonitor
}

func NewLifecycle(log *slog.Logger, registry contract.IRegistry, groups contract.IGroupTable,
	router contract.IRouter, monitor *observability.RelayMonitor) *Lifecycle {
	return &Lifecycle{
		log:      log,
		registry: registry,
		groups:   groups,
		router:   router,
		monitor:  monitor,
	}
}

// Handle registers conn, routes every inbound frame until the connection
// fails or closes, then tears it down. It blocks for the whole connection
// lifetime and is meant to run on the connection's own goroutine.
func (l *Lifecycle) Handle(ctx context.Context, conn contract.Conn) {
	l.accept(conn)
	defer l.teardown(conn)

	for {
		if ctx.Err() != nil {
			l.log.Debug("Context done, stopping connection", "conn_id", conn.ID())
			return
		}
		frame, err := conn.Receive()
		if err != nil {
			l.log.Debug("Connection receive ended", "conn_id", conn.ID(), "error", err)
			return
		}
		l.router.Route(ctx, conn, frame)
	}
}

func (l *Lifecycle) accept(conn contract.Conn) {
	l.registry.Add(conn)
	l.monitor.ConnectionOpened()
	l.log.Info("Connection accepted", "conn_id", conn.ID(), "connections", l.registry.Len())
}

// teardown leaves every group before the registry forgets the connection,
// so no broadcast can pick up a half retired member.
func (l *Lifecycle) teardown(conn contract.Conn) {
	left := l.groups.Leave(conn.ID())
	l.registry.Remove(conn.ID())
	if err := conn.Close(); err != nil {
		l.log.Debug("Error while closing connection", "conn_id", conn.ID(), "error", err)
	}
	l.monitor.ConnectionClosed()
	l.log.Info("Connection closed", "conn_id", conn.ID(), "groups_left", len(left), "connections", l.registry.Len())
}

// CloseAll closes every registered connection. Each Handle loop then
// observes the receive error and runs its own teardown.
func (l *Lifecycle) CloseAll() {
	conns := l.registry.All()
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			l.log.Debug("Error while closing connection", "conn_id", conn.ID(), "error", err)
		}
	}
	l.log.Info("All connections closed", "count", len(conns))
}

// Snapshot returns the monitor counters enriched with the current groups.
func (l *Lifecycle) Snapshot() observability.RelayStats {
	stats := l.monitor.Snapshot()
	stats.ConnectionsActive = int64(l.registry.Len())
	stats.Groups = lo.Map(l.groups.Groups(), func(name domain.GroupName, _ int) observability.GroupStats {
		return observability.GroupStats{Name: string(name), Members: len(l.groups.Members(name))}
	})
	return stats
}
