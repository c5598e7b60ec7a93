// Package cache holds the published snapshot of the bookmark tree and
// notifies subscribers whenever it is replaced.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/alexjbarnes/marksync/internal/models"
)

// State is one published cache state. Data is nil until the first
// successful fetch, or after an unrecoverable fetch failure.
type State struct {
	Data    *models.RootItems
	Loading bool
}

// Listener is called with every new state, in publish order.
type Listener func(State)

type subscription struct {
	id int64
	fn Listener
}

// Cache owns the current snapshot. Reads never block: the state is held
// behind an atomic pointer and replaced wholesale, so readers see either
// the old or the new snapshot and never a partial one.
//
// Writes (Replace, Update, SetLoading) are serialized. Listeners run on
// the writing goroutine while the write lock is held, which keeps
// notifications in publish order. A listener must therefore not write
// to the cache synchronously; it may read, subscribe or unsubscribe.
type Cache struct {
	state atomic.Pointer[State]

	writeMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []subscription
	nextID      int64
}

// New returns a cache with no data that is marked as loading.
func New() *Cache {
	c := &Cache{}
	c.state.Store(&State{Loading: true})

	return c
}

// Read returns the current state.
func (c *Cache) Read() State {
	return *c.state.Load()
}

// Snapshot returns the current tree, or false when nothing has been
// loaded yet.
func (c *Cache) Snapshot() (models.RootItems, bool) {
	s := c.state.Load()
	if s.Data == nil {
		return models.RootItems{}, false
	}

	return *s.Data, true
}

// Subscribe registers fn for every later state transition and returns a
// function that removes it. Listeners are called in registration order.
// A listener added while a notification is in flight is first called
// for the next one.
func (c *Cache) Subscribe(fn Listener) (unsubscribe func()) {
	c.listenersMu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, subscription{id: id, fn: fn})
	c.listenersMu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			defer c.listenersMu.Unlock()

			for i, s := range c.listeners {
				if s.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// Replace publishes s and notifies listeners.
func (c *Cache) Replace(s State) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.publish(s)
}

// ReplaceIf publishes s only if current reports true. current runs under
// the write lock, so nothing can be published between the check and s.
func (c *Cache) ReplaceIf(s State, current func() bool) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !current() {
		return false
	}

	c.publish(s)

	return true
}

// SetLoading flips the loading flag while keeping the current data.
func (c *Cache) SetLoading(loading bool) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := c.Read()
	if cur.Loading == loading {
		return
	}

	cur.Loading = loading
	c.publish(cur)
}

// Update computes a new tree from the most recently published one and
// publishes it. fn runs under the write lock, so no other write can land
// between the read it is given and the publish of its result. When fn
// returns an error nothing is published and the error is returned.
//
// fn receives ok=false when no tree has been loaded.
func (c *Cache) Update(fn func(cur models.RootItems, ok bool) (models.RootItems, error)) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := c.Read()

	var root models.RootItems
	if cur.Data != nil {
		root = *cur.Data
	}

	next, err := fn(root, cur.Data != nil)
	if err != nil {
		return err
	}

	c.publish(State{Data: &next, Loading: cur.Loading})

	return nil
}

func (c *Cache) publish(s State) {
	c.state.Store(&s)

	c.listenersMu.Lock()
	subs := make([]subscription, len(c.listeners))
	copy(subs, c.listeners)
	c.listenersMu.Unlock()

	for _, sub := range subs {
		sub.fn(s)
	}
}
