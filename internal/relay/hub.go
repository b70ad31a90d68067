// Package relay forwards signaling frames between the participants of a room.
// It never decodes the frames it carries.
package relay

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/1ureka/duocall/internal/util"
)

// ErrRoomFull is returned by join when the room already holds RoomCapacity
// participants.
var ErrRoomFull = errors.New("room is full")

// room is the member set of one room id.
type room struct {
	id      string
	members map[string]*participant
}

// Hub maps room ids to their participants. All membership changes and the
// recipient snapshot taken by broadcast go through one RW mutex; enqueueing to
// recipients happens outside it.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	capacity int

	metrics  *Metrics
	messages atomic.Int64
	bytes    atomic.Int64
}

// NewHub creates an empty hub. capacity <= 0 means rooms are unbounded.
// metrics may be nil.
func NewHub(capacity int, metrics *Metrics) *Hub {
	return &Hub{
		rooms:    make(map[string]*room),
		capacity: capacity,
		metrics:  metrics,
	}
}

// join registers p in its room. Nothing is sent to p or to the other members.
func (h *Hub) join(p *participant) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[p.room]
	if ok && h.capacity > 0 && len(r.members) >= h.capacity {
		return ErrRoomFull
	}
	if !ok {
		r = &room{id: p.room, members: make(map[string]*participant)}
		h.rooms[p.room] = r
	}

	r.members[p.id] = p
	h.metrics.joined()
	util.LogDebug("participant %s joined room %q (%d present)", p.id, p.room, len(r.members))
	return nil
}

// leave removes p from its room and closes its outbox. Empty rooms are
// dropped. No bye is synthesized on p's behalf.
func (h *Hub) leave(p *participant) {
	h.mu.Lock()
	r, ok := h.rooms[p.room]
	if ok {
		if _, member := r.members[p.id]; member {
			delete(r.members, p.id)
			h.metrics.left()
		}
		if len(r.members) == 0 {
			delete(h.rooms, p.room)
		}
	}
	h.mu.Unlock()

	p.outbox.Close()
	util.LogDebug("participant %s left room %q", p.id, p.room)
}

// broadcast queues f for every other member of from's room. Recipients that leave
// concurrently are skipped; one recipient never delays another.
func (h *Hub) broadcast(from *participant, f frame) {
	h.mu.RLock()
	var recipients []*participant
	if r, ok := h.rooms[from.room]; ok {
		recipients = make([]*participant, 0, len(r.members))
		for id, p := range r.members {
			if id != from.id {
				recipients = append(recipients, p)
			}
		}
	}
	h.mu.RUnlock()

	h.messages.Add(1)
	h.bytes.Add(int64(len(f.data)))
	h.metrics.received(len(f.data))

	for _, p := range recipients {
		if p.outbox.Push(f) {
			h.metrics.delivered()
		}
	}
}

// Members returns the participant ids currently in roomID.
func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot reports current occupancy and cumulative traffic.
func (h *Hub) Snapshot() util.Snapshot {
	h.mu.RLock()
	s := util.Snapshot{Rooms: len(h.rooms)}
	for _, r := range h.rooms {
		s.Participants += len(r.members)
	}
	h.mu.RUnlock()

	s.Messages = h.messages.Load()
	s.Bytes = h.bytes.Load()
	return s
}
