package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/willf/bitset"
)

// ErrStaleHandle is returned when a handle is released twice or was never issued by the registry.
var ErrStaleHandle = errors.New("resource: stale handle")

// Registry issues handles and tracks which of them are alive.
// Each kind keeps a bitset of live ids. Ids are never reused so a stale handle can not alias a newer object.
type Registry interface {
	// Acquire issues a new live handle of the given kind.
	//
	// Parameters:
	//   - kind: the resource category
	//   - label: a human readable name reported by Leaks
	//
	// Returns:
	//   - Handle: the new handle
	Acquire(kind Kind, label string) Handle

	// Release marks a handle as dead.
	//
	// Parameters:
	//   - h: the handle to release
	//
	// Returns:
	//   - error: ErrStaleHandle if h is not alive
	Release(h Handle) error

	// Alive reports whether a handle has been acquired and not yet released.
	Alive(h Handle) bool

	// Live returns the number of live handles of one kind.
	Live(kind Kind) int

	// Total returns the number of live handles of every kind.
	Total() int

	// Leaks describes every live handle, in kind then id order.
	Leaks() []string
}

type registryImpl struct {
	mu     *sync.Mutex
	live   [kindCount]bitset.BitSet
	next   [kindCount]uint
	labels map[Handle]string
}

var _ Registry = &registryImpl{}

// NewRegistry creates an empty Registry.
func NewRegistry() Registry {
	return &registryImpl{
		mu:     &sync.Mutex{},
		labels: make(map[Handle]string),
	}
}

func (r *registryImpl) Acquire(kind Kind, label string) Handle {
	if kind >= kindCount {
		panic(fmt.Sprintf("resource: unknown kind %d", kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next[kind]++
	h := Handle{Kind: kind, ID: r.next[kind]}
	r.live[kind].Set(h.ID)
	if label != "" {
		r.labels[h] = label
	}
	return h
}

func (r *registryImpl) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.aliveLocked(h) {
		return fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	r.live[h.Kind].Clear(h.ID)
	delete(r.labels, h)
	return nil
}

func (r *registryImpl) Alive(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aliveLocked(h)
}

func (r *registryImpl) aliveLocked(h Handle) bool {
	return h.Valid() && h.Kind < kindCount && r.live[h.Kind].Test(h.ID)
}

func (r *registryImpl) Live(kind Kind) int {
	if kind >= kindCount {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.live[kind].Count())
}

func (r *registryImpl) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for k := range r.live {
		total += int(r.live[k].Count())
	}
	return total
}

func (r *registryImpl) Leaks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for k := range r.live {
		set := &r.live[k]
		for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
			h := Handle{Kind: Kind(k), ID: i}
			if label, has := r.labels[h]; has {
				out = append(out, fmt.Sprintf("%s (%s)", h, label))
			} else {
				out = append(out, h.String())
			}
		}
	}
	return out
}
