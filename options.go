package rtaudio

// Options configures a new Engine. Zero-valued fields are filled in by
// DefaultOptions' values where a zero would otherwise be unusable (e.g.
// queue capacities); SampleRate, BlockSize and the hardware channel
// counts should always be set explicitly by the caller, from the driver
// it intends to run against.
type Options struct {
	SampleRate             float64
	BlockSize              int
	NumHardwareInputs      int
	NumHardwareOutputs     int
	MaxNumNodes            int
	MaxNumAudioBuses       int
	RealtimeMemorySize     int
	RequestQueueSize       int
	SchedulerQueueSize     int
	WorkerQueueSize        int
	NumWorkers             int
}

// DefaultOptions returns sane defaults for every field Options leaves the
// caller free to omit, matching the reference engine's kQueueSize of 8192
// and two-thread worker pool.
func DefaultOptions() Options {
	return Options{
		SampleRate:         44100,
		BlockSize:          512,
		MaxNumNodes:        1024,
		MaxNumAudioBuses:   128,
		RealtimeMemorySize: 1 << 20,
		RequestQueueSize:   8192,
		SchedulerQueueSize: 8192,
		WorkerQueueSize:    8192,
		NumWorkers:         2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleRate == 0 {
		o.SampleRate = d.SampleRate
	}
	if o.BlockSize == 0 {
		o.BlockSize = d.BlockSize
	}
	if o.MaxNumNodes == 0 {
		o.MaxNumNodes = d.MaxNumNodes
	}
	if o.MaxNumAudioBuses == 0 {
		o.MaxNumAudioBuses = d.MaxNumAudioBuses
	}
	if o.RealtimeMemorySize == 0 {
		o.RealtimeMemorySize = d.RealtimeMemorySize
	}
	if o.RequestQueueSize == 0 {
		o.RequestQueueSize = d.RequestQueueSize
	}
	if o.SchedulerQueueSize == 0 {
		o.SchedulerQueueSize = d.SchedulerQueueSize
	}
	if o.WorkerQueueSize == 0 {
		o.WorkerQueueSize = d.WorkerQueueSize
	}
	if o.NumWorkers == 0 {
		o.NumWorkers = d.NumWorkers
	}
	return o
}

// numOutBuses, numInBuses and totalBuses establish the unified bus id
// space: hardware outputs occupy [0,NumHardwareOutputs), hardware inputs
// occupy the following NumHardwareInputs ids, and general-purpose
// internal buses fill the remainder. A /synth/map/output targeting id 0
// therefore routes straight to the first hardware output channel, the
// same convention SuperCollider uses for its bus allocator.
func (o Options) numOutBuses() int { return o.NumHardwareOutputs }
func (o Options) numInBuses() int  { return o.NumHardwareInputs }
func (o Options) totalBuses() int  { return o.NumHardwareOutputs + o.NumHardwareInputs + o.MaxNumAudioBuses }
