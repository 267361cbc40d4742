// Command rtaudio-demo wires an Engine to a DummyDriver and a handful of
// built-in SynthDefs, configured from an optional YAML file, and drives
// a few blocks end to end so the request pipeline, scheduler, and graph
// processor can be watched working together from the outside.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hypebeast/go-osc/osc"
	"gopkg.in/yaml.v3"

	"github.com/samplecount/rtaudio"
	"github.com/samplecount/rtaudio/internal/driver"
	"github.com/samplecount/rtaudio/plugins/builtin"
)

// Config is the YAML-described shape of a demo run; every field has a
// sane default so an empty or absent file still produces a working
// engine.
type Config struct {
	SampleRate         float64 `yaml:"sampleRate"`
	BlockSize          int     `yaml:"blockSize"`
	NumHardwareInputs  int     `yaml:"numHardwareInputs"`
	NumHardwareOutputs int     `yaml:"numHardwareOutputs"`
	Blocks             int     `yaml:"blocks"`
	Frequency          float64 `yaml:"frequency"`
}

func defaultConfig() Config {
	return Config{
		SampleRate:         48000,
		BlockSize:          64,
		NumHardwareOutputs: 2,
		Blocks:             8,
		Frequency:          440,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// These mirror graph.AddAction/InputConnectionType/OutputConnectionType's
// wire encoding; the demo builds raw OSC requests rather than importing
// internal packages, the way a real client would.
const (
	addToTail  = 1
	outConnect = 0
)

func mustEncode(msg *osc.Message) []byte {
	b, err := msg.MarshalBinary()
	if err != nil {
		panic(err) // a static, hand-built message failing to encode is a programming error
	}
	return b
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	runID := uuid.New()
	log := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("run", runID.String())

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	reply := func(payload []byte) {
		pkt, err := osc.ParsePacket(string(payload))
		if err != nil {
			log.Warn("unparseable reply", "err", err)
			return
		}
		if msg, ok := pkt.(*osc.Message); ok {
			log.Info("reply", "address", msg.Address, "args", msg.Arguments)
		}
	}

	engine := rtaudio.New(rtaudio.Options{
		SampleRate:         cfg.SampleRate,
		BlockSize:          cfg.BlockSize,
		NumHardwareInputs:  cfg.NumHardwareInputs,
		NumHardwareOutputs: cfg.NumHardwareOutputs,
	}, reply, log)
	defer engine.Close()

	engine.RegisterSynthDef("demo.silence", builtin.Silence{})
	engine.RegisterSynthDef("demo.sine", builtin.Sine{})
	engine.RegisterSynthDef("demo.gain", builtin.Gain{})

	drv := driver.New(driver.Options{
		SampleRate: cfg.SampleRate,
		BlockSize:  cfg.BlockSize,
		NumInputs:  cfg.NumHardwareInputs,
		NumOutputs: cfg.NumHardwareOutputs,
	})
	drv.SetProcessCallback(engine.Process)

	groupNew := osc.NewMessage("/group/new")
	groupNew.Append(int32(1)) // requestId
	groupNew.Append(int32(1)) // nodeId
	groupNew.Append(int32(0)) // targetId: root
	groupNew.Append(int32(addToTail))
	engine.Send(mustEncode(groupNew))

	synthNew := osc.NewMessage("/synth/new")
	synthNew.Append(int32(2)) // requestId
	synthNew.Append("demo.sine")
	synthNew.Append(int32(2)) // nodeId
	synthNew.Append(int32(1)) // targetId: the group just created
	synthNew.Append(int32(addToTail))
	engine.Send(mustEncode(synthNew))

	setFreq := osc.NewMessage("/node/set")
	setFreq.Append(int32(3)) // requestId
	setFreq.Append(int32(2)) // nodeId
	setFreq.Append(int32(0)) // control index: freq
	setFreq.Append(float32(cfg.Frequency))
	engine.Send(mustEncode(setFreq))

	mapOut := osc.NewMessage("/synth/map/output")
	mapOut.Append(int32(4)) // requestId
	mapOut.Append(int32(2)) // nodeId
	mapOut.Append(int32(0)) // port
	mapOut.Append(int32(0)) // busId: hardware output 0
	mapOut.Append(int32(outConnect))
	engine.Send(mustEncode(mapOut))

	for i := 0; i < cfg.Blocks; i++ {
		drv.RunOnce(float64(i*cfg.BlockSize) / cfg.SampleRate)
	}

	log.Info("demo run complete", "blocks", cfg.Blocks, "epoch", engine.Epoch())
}
