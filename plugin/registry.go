package plugin

import (
	"fmt"
	"sync"
)

// Registry maps a SynthDef's URI to its constructor. Plugins register
// themselves at startup via Register; the engine looks SynthDefs up by
// URI when handling /synth/new.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]SynthDef
	ports map[string][]PortDescriptor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:  make(map[string]SynthDef),
		ports: make(map[string][]PortDescriptor),
	}
}

// hostCollector implements Host by recording AddPort calls in order.
type hostCollector struct {
	ports []PortDescriptor
}

func (h *hostCollector) AddPort(desc PortDescriptor) {
	h.ports = append(h.ports, desc)
}

// Register adds def under uri, calling Configure once to capture its port
// layout. Registering the same uri twice replaces the previous definition.
func (r *Registry) Register(uri string, def SynthDef) {
	h := &hostCollector{}
	def.Configure(h)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[uri] = def
	r.ports[uri] = h.ports
}

// Lookup returns the SynthDef registered under uri.
func (r *Registry) Lookup(uri string) (SynthDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[uri]
	if !ok {
		return nil, fmt.Errorf("plugin: no synthdef registered for %q", uri)
	}
	return def, nil
}

// Ports returns the port layout captured for uri at registration time.
func (r *Registry) Ports(uri string) ([]PortDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ports, ok := r.ports[uri]
	if !ok {
		return nil, fmt.Errorf("plugin: no synthdef registered for %q", uri)
	}
	return ports, nil
}

// NumAudioInputs reports how many DirInput/RateAudio ports uri declares.
func (r *Registry) NumAudioInputs(uri string) int { return r.countPorts(uri, DirInput, RateAudio) }

// NumAudioOutputs reports how many DirOutput/RateAudio ports uri declares.
func (r *Registry) NumAudioOutputs(uri string) int { return r.countPorts(uri, DirOutput, RateAudio) }

// NumControlInputs reports how many DirInput/RateControl ports uri declares.
func (r *Registry) NumControlInputs(uri string) int {
	return r.countPorts(uri, DirInput, RateControl)
}

// NumControlOutputs reports how many DirOutput/RateControl ports uri declares.
func (r *Registry) NumControlOutputs(uri string) int {
	return r.countPorts(uri, DirOutput, RateControl)
}

func (r *Registry) countPorts(uri string, dir PortDirection, rate PortRate) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.ports[uri] {
		if p.Direction == dir && p.Rate == rate {
			n++
		}
	}
	return n
}
