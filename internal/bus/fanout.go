// Package bus broadcasts feed updates from a single input channel to
// downstream subscribers (pub/sub publisher, stats logger, gateway).
package bus

import (
	"context"
	"log"
	"sync"

	"feedenginev1/internal/model"
)

// FanOut broadcasts updates from a single input channel to N output channels.
// If an output channel is full, the update is dropped for that consumer to
// prevent a slow consumer from blocking the pipeline.
type FanOut struct {
	mu      sync.RWMutex
	outputs []output
	bufSize int

	// OnDrop is called when an update is dropped for a subscriber.
	OnDrop func(subscriber string)
}

type output struct {
	name string
	ch   chan model.Update
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new named output channel. The name
// identifies the consumer in drop accounting.
func (f *FanOut) Subscribe(name string) <-chan model.Update {
	ch := make(chan model.Update, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, output{name: name, ch: ch})
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed.
func (f *FanOut) Run(ctx context.Context, input <-chan model.Update) {
	defer func() {
		f.mu.RLock()
		for _, out := range f.outputs {
			close(out.ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for _, out := range f.outputs {
				select {
				case out.ch <- u:
				default:
					if f.OnDrop != nil {
						f.OnDrop(out.name)
					} else {
						log.Printf("[bus] subscriber %s full, dropping %s update token=%d", out.name, u.Kind, u.Token)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}

// ChannelStat reports (length, capacity) for one subscriber channel.
// Used for reporting channel saturation percentage.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, out := range f.outputs {
		stats[i] = ChannelStat{Name: out.name, Len: len(out.ch), Cap: cap(out.ch)}
	}
	return stats
}
