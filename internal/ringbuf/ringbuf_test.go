package ringbuf

import (
	"testing"
	"time"
)

func tick(price float64) Tick {
	return Tick{At: time.Unix(int64(price), 0), Price: price}
}

func TestPushAndItemsOrder(t *testing.T) {
	r := New(4)
	for _, p := range []float64{1, 2, 3} {
		r.Push(tick(p))
	}
	items := r.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i, want := range []float64{1, 2, 3} {
		if items[i].Price != want {
			t.Errorf("items[%d].Price = %v, want %v", i, items[i].Price, want)
		}
	}
}

func TestOverwritesOldestWhenFull(t *testing.T) {
	r := New(3)
	for _, p := range []float64{1, 2, 3, 4, 5} {
		r.Push(tick(p))
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	items := r.Items()
	for i, want := range []float64{3, 4, 5} {
		if items[i].Price != want {
			t.Errorf("items[%d].Price = %v, want %v", i, items[i].Price, want)
		}
	}
}

func TestMinimumCapacity(t *testing.T) {
	r := New(0)
	if r.Cap() != 2 {
		t.Fatalf("cap = %d, want 2", r.Cap())
	}
}

func TestReset(t *testing.T) {
	r := New(4)
	r.Push(tick(1))
	r.Push(tick(2))
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", r.Len())
	}
	if items := r.Items(); len(items) != 0 {
		t.Fatalf("items after reset = %v, want empty", items)
	}
	r.Push(tick(9))
	if got := r.Items(); len(got) != 1 || got[0].Price != 9 {
		t.Fatalf("items after reuse = %v, want single tick 9", got)
	}
}
