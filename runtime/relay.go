package runtime

import (
	"chat-relay/observability"
	"log/slog"
)

// Relay wires the relay state together: one registry and one group table
// shared by the router and the lifecycle manager.
type Relay struct {
	Registry  *Registry
	Groups    *GroupTable
	Router    *Router
	Lifecycle *Lifecycle
	Monitor   *observability.RelayMonitor
}

func NewRelay(log *slog.Logger, monitor *observability.RelayMonitor) *Relay {
	registry := NewRegistry()
	groups := NewGroupTable(log, registry)
	router := NewRouter(log, registry, groups, monitor)
	return &Relay{
		Registry:  registry,
		Groups:    groups,
		Router:    router,
		Lifecycle: NewLifecycle(log, registry, groups, router, monitor),
		Monitor:   monitor,
	}
}
