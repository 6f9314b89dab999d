package ringbuf

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"feedenginev1/internal/model"
)

func TestRing_BasicPushPop(t *testing.T) {
	r := New(4) // rounds to 4

	u1 := model.Update{Kind: model.KindTrade, Token: 100, LTP: 100}
	u2 := model.Update{Kind: model.KindTrade, Token: 200, LTP: 200}

	if !r.Push(u1) {
		t.Fatal("push u1 should succeed")
	}
	if !r.Push(u2) {
		t.Fatal("push u2 should succeed")
	}

	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}

	got, ok := r.Pop()
	if !ok || got.Token != 100 {
		t.Fatalf("expected token 100, got %v ok=%v", got.Token, ok)
	}

	got, ok = r.Pop()
	if !ok || got.Token != 200 {
		t.Fatalf("expected token 200, got %v ok=%v", got.Token, ok)
	}

	_, ok = r.Pop()
	if ok {
		t.Fatal("pop from empty should return false")
	}
}

func TestRing_Overflow(t *testing.T) {
	r := New(2) // capacity = 2

	r.Push(model.Update{Token: 1})
	r.Push(model.Update{Token: 2})

	// Buffer is full
	ok := r.Push(model.Update{Token: 3})
	if ok {
		t.Fatal("push to full buffer should return false")
	}
	if r.Overflow() != 1 {
		t.Fatalf("expected overflow=1, got %d", r.Overflow())
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := New(4)

	// Fill and drain multiple times to test wraparound
	for round := 0; round < 5; round++ {
		for i := 0; i < 4; i++ {
			if !r.Push(model.Update{BcastSeq: uint32(round*10 + i)}) {
				t.Fatalf("round %d push %d failed", round, i)
			}
		}
		for i := 0; i < 4; i++ {
			u, ok := r.Pop()
			if !ok {
				t.Fatalf("round %d pop %d failed", round, i)
			}
			if u.BcastSeq != uint32(round*10+i) {
				t.Fatalf("round %d pop %d: expected seq=%d, got %d", round, i, round*10+i, u.BcastSeq)
			}
		}
	}
}

func TestRing_SPSC_Concurrent(t *testing.T) {
	const count = 100_000
	r := New(1024)

	var wg sync.WaitGroup
	wg.Add(2)

	// Producer
	go func() {
		defer wg.Done()
		for i := 0; i < count; i++ {
			for !r.Push(model.Update{BcastSeq: uint32(i)}) {
				// spin-wait (yield so this passes on single-CPU machines)
				runtime.Gosched()
			}
		}
	}()

	// Consumer
	received := make([]uint32, 0, count)
	go func() {
		defer wg.Done()
		for len(received) < count {
			u, ok := r.Pop()
			if ok {
				received = append(received, u.BcastSeq)
			} else {
				runtime.Gosched()
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("SPSC test timed out")
	}

	// Verify ordering
	for i, v := range received {
		if v != uint32(i) {
			t.Fatalf("at index %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestRing_NextPow2(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 16}, {1023, 1024},
	}
	for _, tc := range cases {
		got := nextPow2(tc.in)
		if got != tc.want {
			t.Errorf("nextPow2(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
