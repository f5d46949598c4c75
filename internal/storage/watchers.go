package storage

import "sync"

// watchers is the change-notification registry shared by both store
// implementations. Notifications run synchronously after the write that
// produced them has been persisted, so a listener never observes state older
// than the batch it is told about.
type watchers struct {
	mu   sync.Mutex
	next int
	subs map[int]func([]Change)
}

func (w *watchers) subscribe(fn func([]Change)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.subs == nil {
		w.subs = make(map[int]func([]Change))
	}
	id := w.next
	w.next++
	w.subs[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// notify delivers one batch to every subscriber. Callbacks run outside the
// registry lock so a listener may read the store.
func (w *watchers) notify(batch []Change) {
	if len(batch) == 0 {
		return
	}

	w.mu.Lock()
	fns := make([]func([]Change), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(batch)
	}
}
