package billing

import "sync"

// DefaultGuardCapacity bounds the guard when no capacity is configured.
const DefaultGuardCapacity = 1000

// EventGuard is a fixed-capacity set of processed event IDs. When full, adding
// an ID evicts the oldest-inserted one (FIFO, not LRU: lookups never refresh an
// entry's position). Safe for concurrent use.
type EventGuard struct {
	mu       sync.Mutex
	capacity int
	ids      map[string]struct{}
	ring     []string
	next     int // index of the oldest entry once ring is full
}

func NewEventGuard(capacity int) *EventGuard {
	if capacity <= 0 {
		capacity = DefaultGuardCapacity
	}
	return &EventGuard{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
		ring:     make([]string, 0, capacity),
	}
}

func (g *EventGuard) Seen(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.ids[id]
	return ok
}

// MarkProcessed records id. Re-marking a present id keeps its original position.
func (g *EventGuard) MarkProcessed(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.ids[id]; ok {
		return
	}

	if len(g.ring) < g.capacity {
		g.ring = append(g.ring, id)
	} else {
		delete(g.ids, g.ring[g.next])
		g.ring[g.next] = id
		g.next = (g.next + 1) % g.capacity
	}
	g.ids[id] = struct{}{}
}

func (g *EventGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids)
}

func (g *EventGuard) Capacity() int {
	return g.capacity
}
