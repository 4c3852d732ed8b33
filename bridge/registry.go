package bridge

import (
	"sync"

	"github.com/wippyai/glide-ffi/errors"
)

// Handle is the opaque token for a live client: the slot index plus one in
// the low 32 bits, the slot generation in the high 32. Zero is never issued.
type Handle uint64

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) split() (index, gen uint32, ok bool) {
	low := uint32(h)
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, uint32(h >> 32), true
}

// Registry maps handles to live connections. It is shared by every
// boundary of the process.
type Registry struct {
	entries  []slot
	freeList []uint32
	mu       sync.RWMutex
	closed   bool
}

type slot struct {
	conn  *Connection
	gen   uint32
	valid bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make([]slot, 0, 16),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores conn and returns its handle.
func (r *Registry) Insert(conn *Connection) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errors.New(errors.PhaseConnect, errors.KindClosed).Detail("registry closed").Build()
	}

	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		s := &r.entries[idx]
		s.conn = conn
		s.valid = true
		return makeHandle(idx, s.gen), nil
	}

	r.entries = append(r.entries, slot{conn: conn, gen: 1, valid: true})
	return makeHandle(uint32(len(r.entries)-1), 1), nil
}

// Get returns the connection for h.
func (r *Registry) Get(h Handle) (*Connection, bool) {
	idx, gen, ok := h.split()
	if !ok {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(idx) >= len(r.entries) {
		return nil, false
	}
	s := r.entries[idx]
	if !s.valid || s.gen != gen {
		return nil, false
	}
	return s.conn, true
}

// Remove takes the connection for h out of the registry. The slot's
// generation advances so h, and any copy of it, stops resolving.
func (r *Registry) Remove(h Handle) (*Connection, bool) {
	idx, gen, ok := h.split()
	if !ok {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if int(idx) >= len(r.entries) {
		return nil, false
	}
	s := &r.entries[idx]
	if !s.valid || s.gen != gen {
		return nil, false
	}

	conn := s.conn
	s.conn = nil
	s.valid = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	r.freeList = append(r.freeList, idx)
	return conn, true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.entries {
		if s.valid {
			count++
		}
	}
	return count
}

// Each iterates over live connections until fn returns false.
func (r *Registry) Each(fn func(Handle, *Connection) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, s := range r.entries {
		if s.valid {
			if !fn(makeHandle(uint32(i), s.gen), s.conn) {
				break
			}
		}
	}
}

// Close stops accepting connections and returns the ones still live so
// the caller can tear them down.
func (r *Registry) Close() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var live []*Connection
	for i := range r.entries {
		if r.entries[i].valid {
			live = append(live, r.entries[i].conn)
			r.entries[i].valid = false
			r.entries[i].conn = nil
		}
	}
	r.entries = nil
	r.freeList = nil
	return live
}
