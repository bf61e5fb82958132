package buffer

import "testing"

func TestRingEvictsOldestFirst(t *testing.T) {
	r := NewRing[int](5)
	for i := 0; i < 12; i++ {
		r.Push(i)
	}
	if r.Len() != 5 {
		t.Fatalf("expected len 5 after overflow, got %d", r.Len())
	}
	want := []int{7, 8, 9, 10, 11}
	got := r.Values()
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("values[%d]: expected %d, got %d", i, v, got[i])
		}
	}
}

func TestRingUnderCapacity(t *testing.T) {
	r := NewRing[float64](10)
	r.Push(1.5)
	r.Push(2.5)
	if r.Len() != 2 || r.Cap() != 10 {
		t.Fatalf("unexpected len/cap: %d/%d", r.Len(), r.Cap())
	}
	latest, ok := r.Latest()
	if !ok || latest != 2.5 {
		t.Fatalf("unexpected latest: %v %v", latest, ok)
	}
}

func TestRingTail(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}
	tail := r.Tail(2)
	if len(tail) != 2 || tail[0] != 5 || tail[1] != 6 {
		t.Fatalf("unexpected tail: %+v", tail)
	}
	all := r.Tail(99)
	if len(all) != 4 || all[0] != 3 {
		t.Fatalf("unexpected clamped tail: %+v", all)
	}
}

func TestRingReset(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)
	r.Push(2)
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after reset")
	}
	if _, ok := r.Latest(); ok {
		t.Fatalf("expected no latest after reset")
	}
	r.Push(9)
	if v, _ := r.Latest(); v != 9 {
		t.Fatalf("expected ring usable after reset")
	}
}
