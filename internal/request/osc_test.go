package request

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func oscString(s string) []byte {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func oscInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func buildMessage(addr, typetags string, args ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(oscString(addr))
	buf.Write(oscString("," + typetags))
	for _, a := range args {
		buf.Write(a)
	}
	return buf.Bytes()
}

func TestParseSimpleMessage(t *testing.T) {
	data := buildMessage("/node/free", "i", oscInt32(42))
	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	msg, ok := pkt.(*Message)
	if !ok {
		t.Fatalf("got %T, want *Message", pkt)
	}
	if msg.Address != "/node/free" {
		t.Fatalf("Address = %q", msg.Address)
	}
	args := msg.Args()
	v, err := args.Int32()
	if err != nil || v != 42 {
		t.Fatalf("Int32() = %d,%v want 42,nil", v, err)
	}
	if !args.AtEnd() {
		t.Fatal("expected AtEnd after consuming the only argument")
	}
}

func TestParseBundle(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(oscString("#bundle"))
	timetag := make([]byte, 8)
	binary.BigEndian.PutUint64(timetag, 123456)
	buf.Write(timetag)

	inner := buildMessage("/node/set", "iif", oscInt32(1), oscInt32(0), oscFloat32(0.5))
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(inner)))
	buf.Write(size)
	buf.Write(inner)

	pkt, err := ParsePacket(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	b, ok := pkt.(*Bundle)
	if !ok {
		t.Fatalf("got %T, want *Bundle", pkt)
	}
	if b.Time != 123456 {
		t.Fatalf("Time = %d, want 123456", b.Time)
	}
	if len(b.Packets) != 1 {
		t.Fatalf("len(Packets) = %d, want 1", len(b.Packets))
	}
	msg := b.Packets[0].(*Message)
	if msg.Address != "/node/set" {
		t.Fatalf("Address = %q", msg.Address)
	}
}

func oscFloat32(v float32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func TestArrayArgument(t *testing.T) {
	// /synth/new "test.sine" nodeId target addAction [controls...] [args...]
	inner1 := oscFloat32(440)
	inner2 := oscFloat32(0.5)
	data := buildMessage("/synth/new", "siii[f][f]",
		oscString("test.sine"), oscInt32(1), oscInt32(0), oscInt32(0),
		inner1, inner2,
	)
	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	msg := pkt.(*Message)
	args := msg.Args()
	if s, err := args.String(); err != nil || s != "test.sine" {
		t.Fatalf("String() = %q,%v", s, err)
	}
	for i := 0; i < 3; i++ {
		if _, err := args.Int32(); err != nil {
			t.Fatalf("Int32() #%d: %v", i, err)
		}
	}
	controls, err := args.Array()
	if err != nil {
		t.Fatalf("Array() controls: %v", err)
	}
	cv, err := controls.Float32()
	if err != nil || cv != 440 {
		t.Fatalf("controls.Float32() = %v,%v want 440", cv, err)
	}
	if !controls.AtEnd() {
		t.Fatal("controls stream should be exhausted")
	}

	argsArr, err := args.Array()
	if err != nil {
		t.Fatalf("Array() args: %v", err)
	}
	av, err := argsArr.Float32()
	if err != nil || av != 0.5 {
		t.Fatalf("args.Float32() = %v,%v want 0.5", av, err)
	}
	if !args.AtEnd() {
		t.Fatal("outer stream should be exhausted after both arrays")
	}
}

func TestDropSkipsArray(t *testing.T) {
	data := buildMessage("/x", "i[ii]i", oscInt32(1), oscInt32(2), oscInt32(3), oscInt32(4))
	pkt, _ := ParsePacket(data)
	args := pkt.(*Message).Args()
	if _, err := args.Int32(); err != nil {
		t.Fatalf("Int32: %v", err)
	}
	if err := args.Drop(); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	v, err := args.Int32()
	if err != nil || v != 4 {
		t.Fatalf("Int32 after Drop = %d,%v want 4", v, err)
	}
}
