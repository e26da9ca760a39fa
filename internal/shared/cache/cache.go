package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a byte-oriented key/value cache with per-key TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Signals publishes and receives payload-less wakeups on named channels.
type Signals interface {
	Signal(ctx context.Context, channel string) error
	Listen(ctx context.Context, channel string) (<-chan struct{}, error)
}

// Keys shared by producers and consumers.
const (
	KeySystemConfig   = "docuflow:system-config"
	ChannelJobsQueued = "docuflow:jobs:queued"
)

// Memory is an in-process Cache and Signals implementation.
type Memory struct {
	mu        sync.Mutex
	items     map[string]memoryItem
	listeners map[string][]chan struct{}
	now       func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		items:     make(map[string]memoryItem),
		listeners: make(map[string][]chan struct{}),
		now:       time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), item.value...), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Signal wakes every listener of channel without blocking.
func (m *Memory) Signal(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.listeners[channel] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Listen registers a listener that is removed when ctx is done.
func (m *Memory) Listen(ctx context.Context, channel string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.listeners[channel] = append(m.listeners[channel], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.listeners[channel]
		for i, c := range list {
			if c == ch {
				m.listeners[channel] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}()
	return ch, nil
}

var (
	_ Cache   = (*Memory)(nil)
	_ Signals = (*Memory)(nil)
)
