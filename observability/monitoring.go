package observability

import (
	"chat-relay/domain"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ProcessStats is the last sample taken by the health monitoring worker.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float32 `json:"ram_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Goroutines int     `json:"goroutines"`
	SampledAt  string  `json:"sampled_at"`
}

// GroupStats is the member count of one group at snapshot time.
type GroupStats struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// RelayStats aggregates every counter exposed by /debug/stats.
type RelayStats struct {
	Uptime            string            `json:"uptime"`
	ConnectionsActive int64             `json:"connections_active"`
	ConnectionsTotal  int64             `json:"connections_total"`
	TextFrames        uint64            `json:"text_frames"`
	BinaryFrames      uint64            `json:"binary_frames"`
	GroupMessages     uint64            `json:"group_messages"`
	GlobalMessages    uint64            `json:"global_messages"`
	MalformedDropped  uint64            `json:"malformed_dropped"`
	Delivered         uint64            `json:"delivered"`
	Skipped           uint64            `json:"skipped"`
	Failed            uint64            `json:"failed"`
	BinaryMimeTypes   map[string]uint64 `json:"binary_mime_types"`
	Groups            []GroupStats      `json:"groups"`
	Process           ProcessStats      `json:"process"`
}

// RelayMonitor collects relay telemetry.
// All methods are safe for concurrent use and a nil *RelayMonitor is a no-op.
type RelayMonitor struct {
	log *slog.Logger

	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	textFrames        atomic.Uint64
	binaryFrames      atomic.Uint64
	groupMessages     atomic.Uint64
	globalMessages    atomic.Uint64
	malformedDropped  atomic.Uint64
	delivered         atomic.Uint64
	skipped           atomic.Uint64
	failed            atomic.Uint64

	mu        sync.RWMutex
	startedAt time.Time
	mimeTypes map[string]uint64
	process   ProcessStats
}

func NewRelayMonitor(log *slog.Logger) *RelayMonitor {
	return &RelayMonitor{
		log:       log,
		startedAt: time.Now(),
		mimeTypes: make(map[string]uint64),
	}
}

func (m *RelayMonitor) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.Add(1)
	m.connectionsTotal.Add(1)
}

func (m *RelayMonitor) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Add(-1)
}

func (m *RelayMonitor) FrameReceived(kind domain.FrameKind) {
	if m == nil {
		return
	}
	if kind == domain.FrameBinary {
		m.binaryFrames.Add(1)
		return
	}
	m.textFrames.Add(1)
}

func (m *RelayMonitor) MalformedDropped() {
	if m == nil {
		return
	}
	m.malformedDropped.Add(1)
}

func (m *RelayMonitor) GroupMessage() {
	if m == nil {
		return
	}
	m.groupMessages.Add(1)
}

func (m *RelayMonitor) GlobalMessage() {
	if m == nil {
		return
	}
	m.globalMessages.Add(1)
}

// BinaryRelayed counts one binary passthrough by sniffed MIME type.
func (m *RelayMonitor) BinaryRelayed(mime string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.mimeTypes[mime]++
	first := m.mimeTypes[mime] == 1
	m.mu.Unlock()
	if first && m.log != nil {
		m.log.Debug("New binary content type relayed", "mime", mime)
	}
}

func (m *RelayMonitor) RecordDelivery(d domain.Delivery) {
	if m == nil {
		return
	}
	m.delivered.Add(uint64(d.Delivered))
	m.skipped.Add(uint64(d.Skipped))
	m.failed.Add(uint64(d.Failed))
}

func (m *RelayMonitor) UpdateProcess(stats ProcessStats) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.process = stats
	m.mu.Unlock()
}

func (m *RelayMonitor) ActiveConnections() int64 {
	if m == nil {
		return 0
	}
	return m.connectionsActive.Load()
}

// Snapshot copies every counter. Groups are filled by the caller, which owns the table.
func (m *RelayMonitor) Snapshot() RelayStats {
	if m == nil {
		return RelayStats{}
	}
	m.mu.RLock()
	mimeTypes := make(map[string]uint64, len(m.mimeTypes))
	for k, v := range m.mimeTypes {
		mimeTypes[k] = v
	}
	process := m.process
	startedAt := m.startedAt
	m.mu.RUnlock()

	return RelayStats{
		Uptime:            time.Since(startedAt).Round(time.Second).String(),
		ConnectionsActive: m.connectionsActive.Load(),
		ConnectionsTotal:  m.connectionsTotal.Load(),
		TextFrames:        m.textFrames.Load(),
		BinaryFrames:      m.binaryFrames.Load(),
		GroupMessages:     m.groupMessages.Load(),
		GlobalMessages:    m.globalMessages.Load(),
		MalformedDropped:  m.malformedDropped.Load(),
		Delivered:         m.delivered.Load(),
		Skipped:           m.skipped.Load(),
		Failed:            m.failed.Load(),
		BinaryMimeTypes:   mimeTypes,
		Process:           process,
	}
}
