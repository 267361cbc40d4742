package graph

import "github.com/samplecount/rtaudio/internal/bus"

// InputConnectionType distinguishes a plain input read from a feedback
// read, which is allowed to observe a bus's data from the previous block,
// e.g. written by a node later in processing order.
type InputConnectionType int

const (
	InConnection InputConnectionType = iota
	InFeedbackConnection
)

// OutputConnectionType distinguishes accumulating writes from writes that
// replace the bus's contents outright.
type OutputConnectionType int

const (
	OutConnection OutputConnectionType = iota
	ReplaceOutConnection
)

// AudioInputConnection binds one of a synth's audio input ports to a bus.
type AudioInputConnection struct {
	index int
	busID bus.ID
	typ   InputConnectionType
	bound bool
}

// Connect rebinds the connection to busID/typ, reporting whether the bus
// identity changed (used by mapInput's changed-flag bookkeeping).
func (c *AudioInputConnection) Connect(busID bus.ID, typ InputConnectionType) bool {
	changed := !c.bound || c.busID != busID
	c.busID = busID
	c.typ = typ
	c.bound = true
	return changed
}

// Read fills dst from the bus this connection points at, or with silence
// if unconnected or the bus is stale for epoch. A kInFeedback connection
// is exempt from the staleness check: it reads whatever the bus holds,
// which is the previous block's data whenever nothing has written it
// yet this epoch.
func (c *AudioInputConnection) Read(reg *bus.Registry, epoch bus.Epoch, dst []float32) {
	if !c.bound {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	b, err := reg.At(c.busID)
	if err != nil {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	if c.typ == InFeedbackConnection {
		b.ReadFeedback(dst)
		return
	}
	b.Read(epoch, dst)
}

// AudioOutputConnection binds one of a synth's audio output ports to a bus.
type AudioOutputConnection struct {
	index int
	busID bus.ID
	typ   OutputConnectionType
	bound bool
}

// Connect rebinds the connection to busID/typ, reporting whether the bus
// identity changed.
func (c *AudioOutputConnection) Connect(busID bus.ID, typ OutputConnectionType) bool {
	changed := !c.bound || c.busID != busID
	c.busID = busID
	c.typ = typ
	c.bound = true
	return changed
}

// Write sends src to the bus this connection points at. A ReplaceOut
// connection always overwrites; an Out connection accumulates within the
// current epoch and overwrites across epoch boundaries, same as
// bus.Bus.Write.
func (c *AudioOutputConnection) Write(reg *bus.Registry, epoch bus.Epoch, src []float32) {
	if !c.bound {
		return
	}
	b, err := reg.At(c.busID)
	if err != nil {
		return
	}
	if c.typ == ReplaceOutConnection {
		b.WriteExact(epoch, src)
	} else {
		b.Write(epoch, src)
	}
}
