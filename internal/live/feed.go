package live

import (
	"slices"
	"sync"

	"github.com/elcuervo/otq/internal/task"
)

// Snapshot is a read-only view of every task in the vault. Subscribers must
// not modify it.
type Snapshot struct {
	Tasks []*task.Task
	// Version increases with every published snapshot.
	Version uint64
}

// Handle identifies a subscription.
type Handle uint64

// ChangeFeed is how a live query learns that the task collection changed.
type ChangeFeed interface {
	// RequestUpdate asks for the current snapshot to be delivered to fn.
	RequestUpdate(fn func(Snapshot))
	// Subscribe registers fn for every future snapshot.
	Subscribe(fn func(Snapshot)) Handle
	Unsubscribe(h Handle)
}

// Bus is an in-process ChangeFeed. Publish replaces the current snapshot and
// delivers it to every subscriber on the caller's goroutine.
type Bus struct {
	mu      sync.Mutex
	current Snapshot
	next    Handle
	subs    map[Handle]func(Snapshot)
}

var _ ChangeFeed = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{subs: make(map[Handle]func(Snapshot))}
}

// Publish stores tasks as the current snapshot and notifies subscribers.
func (b *Bus) Publish(tasks []*task.Task) Snapshot {
	b.mu.Lock()
	b.current = Snapshot{Tasks: tasks, Version: b.current.Version + 1}
	snap := b.current
	subs := b.subscribers()
	b.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// Current returns the last published snapshot.
func (b *Bus) Current() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Bus) RequestUpdate(fn func(Snapshot)) {
	fn(b.Current())
}

func (b *Bus) Subscribe(fn func(Snapshot)) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	b.subs[b.next] = fn
	return b.next
}

func (b *Bus) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, h)
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// subscribers returns callbacks in subscription order. Callers hold mu.
func (b *Bus) subscribers() []func(Snapshot) {
	handles := make([]Handle, 0, len(b.subs))
	for h := range b.subs {
		handles = append(handles, h)
	}
	slices.Sort(handles)

	out := make([]func(Snapshot), len(handles))
	for i, h := range handles {
		out[i] = b.subs[h]
	}
	return out
}
