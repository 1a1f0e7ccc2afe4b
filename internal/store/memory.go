package store

import (
	"context"
	"sync"
)

// subscriberBuffer bounds how far a slow subscriber may lag before
// notifications to it are dropped.
const subscriberBuffer = 64

// Memory is an in-process KV used for single-instance runs and tests.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte

	subMu sync.Mutex
	subs  map[chan string]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
		subs: make(map[chan string]struct{}),
	}
}

var _ KV = (*Memory)(nil)

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return cloneBytes(v), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = cloneBytes(value)
	m.mu.Unlock()
	m.publish(key)
	return nil
}

func (m *Memory) Update(ctx context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	var current []byte
	if v, ok := m.data[key]; ok {
		current = cloneBytes(v)
	}
	next, err := fn(current)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if next == nil {
		delete(m.data, key)
	} else {
		m.data[key] = cloneBytes(next)
	}
	m.mu.Unlock()
	m.publish(key)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	m.publish(key)
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	m.mu.Lock()
	if _, ok := m.data[key]; ok {
		m.mu.Unlock()
		return false, nil
	}
	m.data[key] = cloneBytes(value)
	m.mu.Unlock()
	m.publish(key)
	return true, nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, subscriberBuffer)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.subMu.Unlock()
	}()

	return ch, nil
}

func (m *Memory) Close() error {
	return nil
}

// Keys returns the number of stored keys. Used by tests.
func (m *Memory) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) publish(key string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- key:
		default:
		}
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
