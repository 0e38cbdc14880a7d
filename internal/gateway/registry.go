package gateway

import "sync"

// Conn is the capability the gateway requires from a live connection: a
// stable opaque identity and a best-effort emit. The websocket Client
// implements it; tests substitute fakes.
type Conn interface {
	ID() string
	Send(e *Event) error
}

// Registry is the single source of truth for room membership. It keeps the
// room index and the reverse connection index in lockstep under one mutex:
// for every connection c and room r, c is in rooms[r] exactly when r is in
// conns[c].
type Registry struct {
	mu sync.RWMutex

	// rooms maps a room name to its member set
	rooms map[string]map[Conn]struct{}

	// conns maps a connection to the set of rooms it belongs to
	conns map[Conn]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[Conn]struct{}),
		conns: make(map[Conn]map[string]struct{}),
	}
}

// Join adds the connection to the room, creating the room on first join.
// Joining a room the connection already belongs to is a no-op.
func (r *Registry) Join(c Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[Conn]struct{})
	}
	r.rooms[room][c] = struct{}{}

	if r.conns[c] == nil {
		r.conns[c] = make(map[string]struct{})
	}
	r.conns[c][room] = struct{}{}
}

// Leave removes the connection from the room. Unknown rooms and
// non-members are no-ops, never errors.
func (r *Registry) Leave(c Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c, room)
}

// LeaveAll removes the connection from every room it belongs to. Used when a
// client switches rooms and when it disconnects.
func (r *Registry) LeaveAll(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.conns[c] {
		r.leaveLocked(c, room)
	}
}

// leaveLocked removes one membership edge from both indexes. Empty sets are
// reaped eagerly so an empty room is indistinguishable from an absent one.
func (r *Registry) leaveLocked(c Conn, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined, ok := r.conns[c]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.conns, c)
		}
	}
}

// MembersOf returns a snapshot of the room's current members. The slice is
// safe to iterate after concurrent mutation; an unknown or empty room yields
// an empty slice.
func (r *Registry) MembersOf(room string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Conn, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		members = append(members, c)
	}
	return members
}

// RoomsOf returns a snapshot of the rooms the connection belongs to.
func (r *Registry) RoomsOf(c Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.conns[c]))
	for room := range r.conns[c] {
		rooms = append(rooms, room)
	}
	return rooms
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
