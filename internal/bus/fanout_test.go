package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"feedenginev1/internal/model"
)

func TestFanOut_BroadcastsToAll(t *testing.T) {
	fo := New(10)
	out1 := fo.Subscribe("redis")
	out2 := fo.Subscribe("stats")

	input := make(chan model.Update, 10)
	ctx, cancel := context.WithCancel(context.Background())
	go fo.Run(ctx, input)

	u := model.Update{
		Kind:    model.KindTrade,
		Segment: model.SegmentNSEFO,
		Token:   49543,
		LTP:     48123.45,
	}

	input <- u
	time.Sleep(50 * time.Millisecond)

	select {
	case got := <-out1:
		if got.Token != 49543 {
			t.Errorf("out1: expected token 49543, got %d", got.Token)
		}
	case <-time.After(time.Second):
		t.Fatal("out1: timed out waiting for update")
	}

	select {
	case got := <-out2:
		if got.Token != 49543 {
			t.Errorf("out2: expected token 49543, got %d", got.Token)
		}
	case <-time.After(time.Second):
		t.Fatal("out2: timed out waiting for update")
	}

	cancel()
}

func TestFanOut_DropsForSlowConsumer(t *testing.T) {
	fo := New(1)
	slow := fo.Subscribe("slow")
	fast := fo.Subscribe("fast")

	var drops atomic.Int32
	var dropped atomic.Value
	fo.OnDrop = func(name string) {
		drops.Add(1)
		dropped.Store(name)
	}

	input := make(chan model.Update, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	// Nobody reads slow; its 1-slot buffer fills after the first update.
	input <- model.Update{Token: 1}
	input <- model.Update{Token: 2}

	got := 0
	timeout := time.After(time.Second)
	for got < 2 {
		select {
		case <-fast:
			got++
		case <-timeout:
			t.Fatal("fast consumer timed out")
		}
	}

	if drops.Load() != 1 {
		t.Fatalf("drops = %d, want 1", drops.Load())
	}
	if name := dropped.Load(); name != "slow" {
		t.Errorf("dropped subscriber = %v, want slow", name)
	}

	// The slow consumer still holds the first update.
	select {
	case u := <-slow:
		if u.Token != 1 {
			t.Errorf("slow got token %d, want 1", u.Token)
		}
	default:
		t.Error("slow consumer buffer empty")
	}
}

func TestFanOut_ChannelStats(t *testing.T) {
	fo := New(4)
	fo.Subscribe("a")
	fo.Subscribe("b")

	stats := fo.ChannelStats()
	if len(stats) != 2 {
		t.Fatalf("stats len = %d, want 2", len(stats))
	}
	if stats[0].Name != "a" || stats[0].Cap != 4 || stats[0].Len != 0 {
		t.Errorf("stats[0] = %+v", stats[0])
	}
}
