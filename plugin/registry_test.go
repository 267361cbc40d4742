package plugin

import "testing"

type fakeInstance struct{ destroyed bool }

func (f *fakeInstance) Connect(port int, buf []float32) {}
func (f *fakeInstance) Process(numFrames int)            {}
func (f *fakeInstance) Destroy()                         { f.destroyed = true }

type fakeDef struct {
	ports []PortDescriptor
}

func (f *fakeDef) Configure(host Host) {
	for _, p := range f.ports {
		host.AddPort(p)
	}
}

func (f *fakeDef) Construct(world World, args Args) Instance { return &fakeInstance{} }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	def := &fakeDef{ports: []PortDescriptor{
		{Name: "out", Rate: RateAudio, Direction: DirOutput},
		{Name: "freq", Rate: RateControl, Direction: DirInput},
	}}
	r.Register("test.sine", def)

	got, err := r.Lookup("test.sine")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != def {
		t.Fatal("Lookup returned a different SynthDef")
	}

	if n := r.NumAudioOutputs("test.sine"); n != 1 {
		t.Fatalf("NumAudioOutputs = %d, want 1", n)
	}
	if n := r.NumControlInputs("test.sine"); n != 1 {
		t.Fatalf("NumControlInputs = %d, want 1", n)
	}
	if n := r.NumAudioInputs("test.sine"); n != 0 {
		t.Fatalf("NumAudioInputs = %d, want 0", n)
	}
}

func TestLookupUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup("nope"); err == nil {
		t.Fatal("want error for unknown uri")
	}
}
