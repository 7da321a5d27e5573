// Package typing tracks which personas are composing a reply.
package typing

import (
	"slices"
	"sync"
)

// Tracker is a goroutine-safe set of persona IDs.
type Tracker struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	watchers map[int]func([]string)
	nextW    int
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{ids: make(map[string]struct{}), watchers: make(map[int]func([]string))}
}

// Add marks id as typing. Adding an id already present changes nothing.
func (t *Tracker) Add(id string) {
	t.mu.Lock()
	if _, ok := t.ids[id]; ok {
		t.mu.Unlock()
		return
	}
	t.ids[id] = struct{}{}
	snap, fns := t.snapshotLocked(), t.watchersLocked()
	t.mu.Unlock()
	notify(fns, snap)
}

// Remove clears id. Removing an absent id changes nothing.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	if _, ok := t.ids[id]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.ids, id)
	snap, fns := t.snapshotLocked(), t.watchersLocked()
	t.mu.Unlock()
	notify(fns, snap)
}

// Contains reports whether id is typing.
func (t *Tracker) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// Len returns the number of personas typing.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// Snapshot returns the typing IDs, sorted.
func (t *Tracker) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// OnChange registers fn to receive the sorted set after every change and
// returns a func that unregisters it. fn is called outside the tracker
// lock, in registration order.
func (t *Tracker) OnChange(fn func([]string)) (cancel func()) {
	t.mu.Lock()
	id := t.nextW
	t.nextW++
	t.watchers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.watchers, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) watchersLocked() []func([]string) {
	fns := make([]func([]string), 0, len(t.watchers))
	for i := 0; i < t.nextW; i++ {
		if fn, ok := t.watchers[i]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (t *Tracker) snapshotLocked() []string {
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func notify(fns []func([]string), snap []string) {
	for _, fn := range fns {
		fn(slices.Clone(snap))
	}
}
