package repo

import (
	"context"
	"slices"
	"sync"

	errs "ardamas/internal/errors"
)

// MaxRoomPeers is the number of peers a relay room admits.
const MaxRoomPeers = 2

// Frame is one payload published into a room.
type Frame struct {
	Peer string `json:"peer"`
	Data []byte `json:"data"`
}

// Backplane tracks room membership and fans frames out to every subscriber
// of a room. Frames published by one caller are delivered in publish order.
type Backplane interface {
	// Join adds peer to room, or returns ErrRoomFull. Joining twice is a no-op.
	Join(ctx context.Context, room, peer string) error
	Leave(ctx context.Context, room, peer string) error
	Members(ctx context.Context, room string) ([]string, error)
	Publish(ctx context.Context, room string, frame Frame) error
	// Subscribe delivers the room's frames, own frames included, until ctx is
	// done. The returned channel is not closed; consumers stop on ctx.
	Subscribe(ctx context.Context, room string) (<-chan Frame, error)
}

type memorySub struct {
	frames chan Frame
	done   <-chan struct{}
}

type memoryRoom struct {
	members []string
	subs    map[*memorySub]struct{}
}

// MemoryBackplane keeps rooms in process memory. It serves a single relay
// instance.
type MemoryBackplane struct {
	mu    sync.Mutex
	rooms map[string]*memoryRoom
}

func NewMemoryBackplane() *MemoryBackplane {
	return &MemoryBackplane{rooms: make(map[string]*memoryRoom)}
}

func (m *MemoryBackplane) room(id string) *memoryRoom {
	r, ok := m.rooms[id]
	if !ok {
		r = &memoryRoom{subs: make(map[*memorySub]struct{})}
		m.rooms[id] = r
	}
	return r
}

// gc drops a room with no members and no subscribers. Callers hold mu.
func (m *MemoryBackplane) gc(id string) {
	if r, ok := m.rooms[id]; ok && len(r.members) == 0 && len(r.subs) == 0 {
		delete(m.rooms, id)
	}
}

func (m *MemoryBackplane) Join(_ context.Context, room, peer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.room(room)
	if slices.Contains(r.members, peer) {
		return nil
	}
	if len(r.members) >= MaxRoomPeers {
		return errs.ErrRoomFull
	}
	r.members = append(r.members, peer)
	return nil
}

func (m *MemoryBackplane) Leave(_ context.Context, room, peer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[room]
	if !ok {
		return nil
	}
	r.members = slices.DeleteFunc(r.members, func(p string) bool { return p == peer })
	m.gc(room)
	return nil
}

func (m *MemoryBackplane) Members(_ context.Context, room string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[room]
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(r.members), nil
}

func (m *MemoryBackplane) Publish(ctx context.Context, room string, frame Frame) error {
	m.mu.Lock()
	var subs []*memorySub
	if r, ok := m.rooms[room]; ok {
		for s := range r.subs {
			subs = append(subs, s)
		}
	}
	m.mu.Unlock()

	for _, s := range subs {
		select {
		case s.frames <- frame:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *MemoryBackplane) Subscribe(ctx context.Context, room string) (<-chan Frame, error) {
	s := &memorySub{
		frames: make(chan Frame, 64),
		done:   ctx.Done(),
	}

	m.mu.Lock()
	m.room(room).subs[s] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if r, ok := m.rooms[room]; ok {
			delete(r.subs, s)
			m.gc(room)
		}
	}()
	return s.frames, nil
}
