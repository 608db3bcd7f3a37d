// Package metrics is a minimal, concurrency-safe counter registry for the
// relay's internal events, scrapable in Prometheus text format.
package metrics

import "sync"

// Event counter names.
const (
	EventRegister       = "register"
	EventOrphaned       = "orphaned_registration"
	EventCallPlaced     = "call_placed"
	EventCallBusy       = "call_busy"
	EventCallNotFound   = "call_not_found"
	EventCallAccepted   = "call_accepted"
	EventCallDeclined   = "call_declined"
	EventCallEnded      = "call_ended"
	EventRoomJoin       = "room_join"
	EventRoomFull       = "room_full"
	EventRelayForwarded = "relay_forwarded"
	EventDisconnect     = "disconnect"
	EventSendDropped    = "send_dropped"
	EventBadPayload     = "bad_payload"
	EventRateLimited    = "rate_limited"
)

type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{m: make(map[string]uint64)}
}

func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
