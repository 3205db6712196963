package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

// Router applies the routing policy to one inbound frame:
//   - binary frames go verbatim to every other open connection, groups are bypassed
//   - text frames carrying a group join the sender and reach the whole group, sender included
//   - text frames without group reach every open connection, sender included
//
// Malformed text frames are logged and dropped.
type Router struct {
	log      *slog.Logger
	registry contract.IRegistry
	groups   contract.IGroupTable
	monitor  *observability.RelayMonitor
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, groups contract.IGroupTable,
	monitor *observability.RelayMonitor) *Router {
	return &Router{log: log, registry: registry, groups: groups, monitor: monitor}
}

func (r *Router) Route(ctx context.Context, sender contract.Conn, frame domain.Frame) {
	r.monitor.FrameReceived(frame.Kind)

	if frame.IsBinary() {
		r.relayBinary(ctx, sender, frame)
		return
	}

	envelope, err := domain.ParseEnvelope(frame.Payload)
	if err != nil {
		r.monitor.MalformedDropped()
		r.log.Warn("Dropping malformed message", "conn_id", sender.ID(), "size", len(frame.Payload), "error", err)
		return
	}

	if envelope.IsGrouped() {
		r.relayGroup(ctx, sender, envelope.Group, frame)
		return
	}
	r.relayGlobal(ctx, frame)
}

func (r *Router) relayBinary(ctx context.Context, sender contract.Conn, frame domain.Frame) {
	mime := mimetype.Detect(frame.Payload).String()
	r.monitor.BinaryRelayed(mime)

	others := lo.Filter(r.registry.All(), func(conn contract.Conn, _ int) bool {
		return conn.ID() != sender.ID()
	})
	delivery := fanout(ctx, r.log, others, frame)
	r.monitor.RecordDelivery(delivery)
	r.log.Debug("Binary frame relayed",
		"conn_id", sender.ID(), "mime", mime, "size", len(frame.Payload), "delivered", delivery.Delivered)
}

func (r *Router) relayGroup(ctx context.Context, sender contract.Conn, group domain.GroupName, frame domain.Frame) {
	if err := r.groups.Join(group, sender); err != nil {
		r.log.Warn("Sender could not join group", "conn_id", sender.ID(), "group", group, "error", err)
		return
	}
	r.monitor.GroupMessage()
	delivery := r.groups.Broadcast(ctx, group, frame)
	r.monitor.RecordDelivery(delivery)
	r.log.Debug("Group message relayed", "conn_id", sender.ID(), "group", group, "delivered", delivery.Delivered)
}

func (r *Router) relayGlobal(ctx context.Context, frame domain.Frame) {
	r.monitor.GlobalMessage()
	delivery := fanout(ctx, r.log, r.registry.All(), frame)
	r.monitor.RecordDelivery(delivery)
}
