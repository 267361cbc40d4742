// Package driver implements the engine's I/O driver contract: something
// that calls back into the engine once per block with input and output
// sample buffers. DummyDriver is the only implementation here — it ticks
// on a timer rather than talking to real audio hardware, which is enough
// to exercise and test the engine end to end.
package driver

import (
	"sync"
	"time"
)

// ProcessFunc is called once per block. inputs and outputs are sized
// [numChannels][blockSize]; outputs must be fully written or zeroed by
// the callee, matching the real-hardware contract.
type ProcessFunc func(currentTime float64, numFrames int, inputs, outputs [][]float32)

// Options configures a DummyDriver.
type Options struct {
	SampleRate      float64
	BlockSize       int
	NumInputs       int
	NumOutputs      int
}

// DummyDriver calls its process callback on a fixed schedule derived from
// SampleRate and BlockSize, as if real hardware were pulling blocks at
// that rate.
type DummyDriver struct {
	opts    Options
	process ProcessFunc

	inputs  [][]float32
	outputs [][]float32

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a DummyDriver with preallocated input/output buffers.
func New(opts Options) *DummyDriver {
	d := &DummyDriver{opts: opts}
	d.inputs = make([][]float32, opts.NumInputs)
	for i := range d.inputs {
		d.inputs[i] = make([]float32, opts.BlockSize)
	}
	d.outputs = make([][]float32, opts.NumOutputs)
	for i := range d.outputs {
		d.outputs[i] = make([]float32, opts.BlockSize)
	}
	return d
}

func (d *DummyDriver) SampleRate() float64 { return d.opts.SampleRate }
func (d *DummyDriver) BlockSize() int      { return d.opts.BlockSize }
func (d *DummyDriver) NumInputs() int      { return d.opts.NumInputs }
func (d *DummyDriver) NumOutputs() int     { return d.opts.NumOutputs }

// SetProcessCallback installs the function called once per simulated
// block. Must be called before Start.
func (d *DummyDriver) SetProcessCallback(fn ProcessFunc) {
	d.process = fn
}

// Start begins ticking blocks on a background goroutine.
func (d *DummyDriver) Start() error {
	d.stop = make(chan struct{})
	period := time.Duration(float64(d.opts.BlockSize) / d.opts.SampleRate * float64(time.Second))
	d.wg.Add(1)
	go d.run(period)
	return nil
}

func (d *DummyDriver) run(period time.Duration) {
	defer d.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var currentTime float64
	blockDuration := float64(d.opts.BlockSize) / d.opts.SampleRate

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			if d.process != nil {
				d.process(currentTime, d.opts.BlockSize, d.inputs, d.outputs)
			}
			currentTime += blockDuration
		}
	}
}

// Stop halts the background goroutine and waits for it to exit.
func (d *DummyDriver) Stop() error {
	if d.stop != nil {
		close(d.stop)
		d.wg.Wait()
	}
	return nil
}

// RunOnce drives exactly one block synchronously, bypassing the ticker —
// useful for deterministic tests.
func (d *DummyDriver) RunOnce(currentTime float64) {
	if d.process != nil {
		d.process(currentTime, d.opts.BlockSize, d.inputs, d.outputs)
	}
}
