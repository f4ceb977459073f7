// Package pending tracks outstanding asynchronous requests by kind so that
// only the most recently issued request of a kind is treated as
// authoritative, and so every outstanding request can be cancelled at once
// when its owner is torn down.
package pending

import (
	"context"
	"sort"
	"sync"

	"connectkit/pkg/logging"
)

// Kind identifies a logical operation, for example "login" or "token_fetch".
type Kind string

// Policy decides what happens to a request superseded by a newer one of the
// same kind.
type Policy int

const (
	// CancelSuperseded cancels the previous request when a new one is registered.
	CancelSuperseded Policy = iota
	// KeepSuperseded leaves the previous request running. Its completion is
	// still reported as not current.
	KeepSuperseded
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case CancelSuperseded:
		return "cancel-superseded"
	case KeepSuperseded:
		return "keep-superseded"
	default:
		return "unknown"
	}
}

// Handle is the registry's receipt for a registered request.
type Handle struct {
	Kind Kind
	Seq  uint64

	generation uint64
	cancel     context.CancelFunc
}

// IsZero reports whether h was never issued by a registry.
func (h Handle) IsZero() bool {
	return h.Seq == 0
}

// Registry tracks at most one request per Kind.
type Registry struct {
	mu         sync.Mutex
	policy     Policy
	generation uint64
	seq        map[Kind]uint64
	active     map[Kind]Handle
}

// New creates a Registry with the given superseding policy.
func New(policy Policy) *Registry {
	return &Registry{
		policy: policy,
		seq:    make(map[Kind]uint64),
		active: make(map[Kind]Handle),
	}
}

// Policy returns the superseding policy.
func (r *Registry) Policy() Policy {
	return r.policy
}

// Register records a new request of kind with its cancel function and
// returns its handle. Any previous request of the same kind stops being
// current, and is cancelled under CancelSuperseded.
func (r *Registry) Register(kind Kind, cancel context.CancelFunc) Handle {
	r.mu.Lock()
	r.seq[kind]++
	h := Handle{
		Kind:       kind,
		Seq:        r.seq[kind],
		generation: r.generation,
		cancel:     cancel,
	}
	prev, hadPrev := r.active[kind]
	r.active[kind] = h
	policy := r.policy
	r.mu.Unlock()

	if hadPrev && policy == CancelSuperseded && prev.cancel != nil {
		logging.Debug("Pending", "Cancelling superseded %s request #%d", kind, prev.Seq)
		prev.cancel()
	}
	return h
}

// Track derives a cancellable context from parent and registers it under kind.
// The returned context is cancelled when the request is superseded (under
// CancelSuperseded), on CancelAll, or when parent is done.
func (r *Registry) Track(parent context.Context, kind Kind) (context.Context, Handle) {
	ctx, cancel := context.WithCancel(parent)
	return ctx, r.Register(kind, cancel)
}

// IsCurrent reports whether h is still the latest request of its kind and
// has not been cancelled by CancelAll.
func (r *Registry) IsCurrent(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isCurrentLocked(h)
}

func (r *Registry) isCurrentLocked(h Handle) bool {
	if h.generation != r.generation {
		return false
	}
	active, ok := r.active[h.Kind]
	return ok && active.Seq == h.Seq
}

// Complete removes h from the registry if it is current and reports whether
// its result is authoritative. The handle's context is released either way.
func (r *Registry) Complete(h Handle) bool {
	r.mu.Lock()
	current := r.isCurrentLocked(h)
	if current {
		delete(r.active, h.Kind)
	}
	r.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	if !current {
		logging.Debug("Pending", "Dropping stale %s completion #%d", h.Kind, h.Seq)
	}
	return current
}

// Cancel cancels h and removes it if it is still current.
func (r *Registry) Cancel(h Handle) {
	r.mu.Lock()
	if r.isCurrentLocked(h) {
		delete(r.active, h.Kind)
	}
	r.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
}

// CancelKind cancels the outstanding request of kind, if any, and reports
// whether there was one.
func (r *Registry) CancelKind(kind Kind) bool {
	r.mu.Lock()
	h, ok := r.active[kind]
	if ok {
		delete(r.active, kind)
	}
	r.mu.Unlock()

	if ok && h.cancel != nil {
		h.cancel()
	}
	return ok
}

// CancelAll cancels every registered request and clears the registry.
// Completions of requests registered before the call are reported as not
// current.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.active))
	for _, h := range r.active {
		handles = append(handles, h)
	}
	r.active = make(map[Kind]Handle)
	r.generation++
	r.mu.Unlock()

	for _, h := range handles {
		if h.cancel != nil {
			h.cancel()
		}
	}
	if len(handles) > 0 {
		logging.Debug("Pending", "Cancelled %d outstanding requests", len(handles))
	}
}

// Latest returns the sequence number of the most recently issued request of
// kind, or 0 when none was issued.
func (r *Registry) Latest(kind Kind) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq[kind]
}

// Len returns the number of outstanding requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Kinds returns the kinds with an outstanding request, sorted.
func (r *Registry) Kinds() []Kind {
	r.mu.Lock()
	kinds := make([]Kind, 0, len(r.active))
	for k := range r.active {
		kinds = append(kinds, k)
	}
	r.mu.Unlock()

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
