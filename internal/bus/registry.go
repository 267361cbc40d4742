package bus

import "fmt"

// ID identifies a bus within a Registry. Internal and external buses
// share the same ID space in one Registry; callers separate them by ID
// range.
type ID uint32

// Registry owns a fixed-size table of preallocated buses, indexed by ID.
// Buses are never created or destroyed once the engine starts: the count
// and frame size are fixed at construction, matching the RT no-allocation
// invariant.
type Registry struct {
	buses     []*Bus
	numFrames int
}

// NewRegistry preallocates count buses of numFrames samples each.
func NewRegistry(count, numFrames int) *Registry {
	r := &Registry{buses: make([]*Bus, count), numFrames: numFrames}
	for i := range r.buses {
		r.buses[i] = New(numFrames)
	}
	return r
}

// Len returns the number of buses in the registry.
func (r *Registry) Len() int { return len(r.buses) }

// At returns the bus at id, or an error if id is out of range.
func (r *Registry) At(id ID) (*Bus, error) {
	if int(id) >= len(r.buses) {
		return nil, fmt.Errorf("bus: id %d out of range [0,%d)", id, len(r.buses))
	}
	return r.buses[id], nil
}
