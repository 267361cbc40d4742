// Package graph implements the node tree: groups and synths linked by
// sibling pointers, walked once per block in depth-first, head-to-tail
// order to drive the audio graph.
package graph

import "github.com/samplecount/rtaudio/internal/bus"

// ID identifies a node within the graph's NodeMap. ID 0 is always the
// root group and can never be freed.
type ID int32

// RootID is the identifier of the always-present root group.
const RootID ID = 0

// Kind distinguishes the two node variants a tagged Node can be.
type Kind int

const (
	KindGroup Kind = iota
	KindSynth
)

// ProcessContext carries the per-block parameters every node needs to
// render: how many frames to produce and the engine's current epoch, used
// by synths to decide whether a bus they read is fresh.
type ProcessContext struct {
	NumFrames int
	Epoch     bus.Epoch
	Buses     *bus.Registry
}

// Node is implemented by *Group and *Synth. It is a tagged variant rather
// than a class hierarchy: callers switch on Kind() when they need
// variant-specific behavior, and use the common methods otherwise.
type Node interface {
	ID() ID
	Kind() Kind
	Parent() *Group
	Process(ctx *ProcessContext)

	setParent(*Group)
	prevNode() Node
	nextNode() Node
	setPrev(Node)
	setNext(Node)
}

// header is embedded by both Group and Synth to implement the sibling
// linked-list bookkeeping shared by every node.
type header struct {
	id     ID
	parent *Group
	prev   Node
	next   Node
}

func (h *header) ID() ID             { return h.id }
func (h *header) Parent() *Group     { return h.parent }
func (h *header) setParent(g *Group) { h.parent = g }
func (h *header) prevNode() Node     { return h.prev }
func (h *header) nextNode() Node     { return h.next }
func (h *header) setPrev(n Node)     { h.prev = n }
func (h *header) setNext(n Node)     { h.next = n }
