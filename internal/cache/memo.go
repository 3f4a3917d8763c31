package cache

import (
	"container/list"
	"sync"
	"time"
)

// Memo is a bounded in-memory memoizer with per-entry TTL. It replaces the
// process-lifetime request-parameter maps the HTTP facade would otherwise
// accumulate: an explicit object with a size bound, injected into callers.
type Memo struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	now     func() time.Time
}

type memoEntry struct {
	key     string
	value   any
	expires time.Time
}

// NewMemo builds a memoizer holding at most max entries, each live for ttl.
func NewMemo(max int, ttl time.Duration) *Memo {
	if max <= 0 {
		max = 256
	}
	return &Memo{
		max:     max,
		ttl:     ttl,
		entries: make(map[string]*list.Element, max),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the live value under key, if any.
func (m *Memo) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*memoEntry)
	if m.ttl > 0 && m.now().After(ent.expires) {
		m.order.Remove(el)
		delete(m.entries, key)
		return nil, false
	}
	m.order.MoveToFront(el)
	return ent.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the bound is exceeded.
func (m *Memo) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[key]; ok {
		ent := el.Value.(*memoEntry)
		ent.value = value
		ent.expires = m.now().Add(m.ttl)
		m.order.MoveToFront(el)
		return
	}

	el := m.order.PushFront(&memoEntry{key: key, value: value, expires: m.now().Add(m.ttl)})
	m.entries[key] = el

	for len(m.entries) > m.max {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoEntry).key)
	}
}

// Len reports the number of entries currently held, expired or not.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
