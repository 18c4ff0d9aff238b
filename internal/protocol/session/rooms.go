package session

import (
	"sort"
	"sync"
	"time"
)

// RoomState tracks one joined chatroom.
type RoomState struct {
	Room     string
	JoinedAt time.Time
}

// Rooms stores joined chatrooms by normalized name.
type Rooms struct {
	mu    sync.RWMutex
	items map[string]RoomState
}

func NewRooms() *Rooms {
	return &Rooms{
		items: make(map[string]RoomState),
	}
}

func (r *Rooms) Joined(room string, at time.Time) {
	key := NormalizeRoom(room)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = RoomState{Room: key, JoinedAt: at}
}

func (r *Rooms) Parted(room string) {
	key := NormalizeRoom(room)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
}

func (r *Rooms) Get(room string) (RoomState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[NormalizeRoom(room)]
	return item, ok
}

// Reset forgets every room; used when a connection drops.
func (r *Rooms) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.items)
}

func (r *Rooms) List() []RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomState, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Room < out[j].Room
	})
	return out
}
