package game

import "sync"

// Registry is the authoritative map from room code to room. It never holds
// its own lock while acquiring a room lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: map[string]*Room{}}
}

func (r *Registry) Get(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// insert assigns an unused code to room and stores it. The caller holds room.mu.
func (r *Registry) insert(gen *codeGenerator, room *Room) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := gen.generate(func(c string) bool {
		_, taken := r.rooms[c]
		return taken
	})
	room.code = code
	r.rooms[code] = room
	return code
}

func (r *Registry) remove(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.rooms[room.code]; ok && current == room {
		delete(r.rooms, room.code)
	}
}

func (r *Registry) snapshot() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}
