package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

type members map[domain.ConnID]contract.Conn

// GroupTable maps a group name to its member connections.
// Groups are created on first join and dropped as soon as they are empty.
type GroupTable struct {
	mu       sync.RWMutex
	log      *slog.Logger
	registry contract.IRegistry
	groups   map[domain.GroupName]members
}

func NewGroupTable(log *slog.Logger, registry contract.IRegistry) *GroupTable {
	return &GroupTable{
		log:      log,
		registry: registry,
		groups:   make(map[domain.GroupName]members),
	}
}

// Join adds conn to group, creating the group if needed.
// Joining a group twice is not an error.
func (g *GroupTable) Join(group domain.GroupName, conn contract.Conn) error {
	if group == "" {
		return errors.ErrInvalidGroup
	}
	if !g.registry.Contains(conn.ID()) {
		return errors.ErrUnknownConnection
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.groups[group]
	if !ok {
		set = make(members)
		g.groups[group] = set
		g.log.Debug("Group created", "group", group)
	}
	if _, already := set[conn.ID()]; !already {
		set[conn.ID()] = conn
		g.log.Debug("Connection joined group", "group", group, "conn_id", conn.ID())
	}
	return nil
}

// Leave removes the connection from every group it belongs to and deletes
// groups left without members in the same critical section.
func (g *GroupTable) Leave(id domain.ConnID) []domain.GroupName {
	g.mu.Lock()
	defer g.mu.Unlock()

	var left []domain.GroupName
	for name, set := range g.groups {
		if _, ok := set[id]; !ok {
			continue
		}
		delete(set, id)
		left = append(left, name)
		if len(set) == 0 {
			delete(g.groups, name)
			g.log.Debug("Group removed, no member left", "group", name)
		}
	}
	return left
}

// Broadcast sends frame to every open member of group.
// Members are snapshotted under the read lock and sent to outside of it.
// A failing member never stops delivery to the others.
func (g *GroupTable) Broadcast(ctx context.Context, group domain.GroupName, frame domain.Frame) domain.Delivery {
	g.mu.RLock()
	recipients := lo.Values(g.groups[group])
	g.mu.RUnlock()

	return fanout(ctx, g.log, recipients, frame)
}

// Groups returns the names of all non-empty groups, sorted.
func (g *GroupTable) Groups() []domain.GroupName {
	g.mu.RLock()
	names := lo.Keys(g.groups)
	g.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Members returns the connection ids of group, or nil if the group doesn't exist.
func (g *GroupTable) Members(group domain.GroupName) []domain.ConnID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set, ok := g.groups[group]
	if !ok {
		return nil
	}
	return lo.Keys(set)
}

func (g *GroupTable) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.groups)
}

// fanout delivers frame to each recipient, skipping closed ones.
// A recipient closing mid fan-out counts as skipped. Other send errors are
// logged and counted, never propagated.
func fanout(ctx context.Context, log *slog.Logger, recipients []contract.Conn, frame domain.Frame) domain.Delivery {
	var delivery domain.Delivery
	for _, conn := range recipients {
		if ctx.Err() != nil {
			log.Debug("Fanout interrupted", "remaining", len(recipients)-delivery.Recipients())
			return delivery
		}
		if !conn.IsOpen() {
			delivery.Skipped++
			continue
		}
		if err := conn.Send(frame); err != nil {
			if goerrors.Is(err, errors.ErrConnectionClosed) {
				delivery.Skipped++
				log.Debug("Recipient closed during fanout", "conn_id", conn.ID())
				continue
			}
			delivery.Failed++
			log.Warn("Failed to deliver frame", "conn_id", conn.ID(), "kind", frame.Kind, "error", err)
			continue
		}
		delivery.Delivered++
	}
	return delivery
}
