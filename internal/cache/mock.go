package cache

import "time"

// Mock is a plain map-backed Cache for tests of cache consumers.
// It ignores TTLs and size budgets.
type Mock struct {
	data map[string]any
}

// NewMock creates a new mock cache for testing.
func NewMock() *Mock {
	return &Mock{data: make(map[string]any)}
}

func (m *Mock) Get(key string) (any, bool) {
	val, found := m.data[key]
	return val, found
}

func (m *Mock) Set(key string, value any, ttl time.Duration) {
	m.data[key] = value
}

func (m *Mock) Delete(key string) bool {
	_, found := m.data[key]
	delete(m.data, key)
	return found
}

func (m *Mock) Clear() {
	m.data = make(map[string]any)
}

func (m *Mock) Stats() Stats {
	return Stats{Items: int64(len(m.data))}
}

func (m *Mock) Close() {}
