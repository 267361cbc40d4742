package rtmem

import "testing"

func TestAllocZeroed(t *testing.T) {
	a := New(64)
	s, err := a.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	for i, b := range s {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}
}

func TestAllocExhaustion(t *testing.T) {
	a := New(16)
	if _, err := a.Alloc(16); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := a.Alloc(1); err != ErrOutOfMemory {
		t.Fatalf("want ErrOutOfMemory, got %v", err)
	}
}

func TestAllocInvalidArgument(t *testing.T) {
	a := New(16)
	if _, err := a.Alloc(0); err != ErrInvalidArgument {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if _, err := a.AllocAligned(3, 4); err != ErrInvalidArgument {
		t.Fatalf("want ErrInvalidArgument for non power-of-two align, got %v", err)
	}
}

func TestAllocAligned(t *testing.T) {
	a := New(128)
	if _, err := a.Alloc(3); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	s, err := a.AllocAligned(16, 8)
	if err != nil {
		t.Fatalf("AllocAligned: %v", err)
	}
	if len(s) != 8 {
		t.Fatalf("want len 8, got %d", len(s))
	}
}

func TestFreeAndReuse(t *testing.T) {
	a := New(16)
	s1, err := a.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	a.Free(s1)
	s2, err := a.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc after Free: %v", err)
	}
	if len(s2) != 16 {
		t.Fatalf("want len 16, got %d", len(s2))
	}
}

func TestFreeUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("want panic freeing unknown allocation")
		}
	}()
	a := New(16)
	bogus := make([]byte, 4)
	a.Free(bogus)
}

func TestFreeNilIsNoop(t *testing.T) {
	a := New(16)
	a.Free(nil)
}
