package cache

import "testing"

func TestEstimateSize(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
	}{
		{"nil", nil, 0},
		{"string", "hello", 5},
		{"utf8 string", "héllo", 6},
		{"bytes", []byte{1, 2, 3}, 3},
		{"bool", true, 1},
		{"int", 42, 8},
		{"float", 3.14, 8},
		{"map", map[string]int{"a": 1}, 7}, // {"a":1}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateSize(tt.value); got != tt.want {
				t.Errorf("estimateSize(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestEstimateSize_UnserializableFallsBack(t *testing.T) {
	// Channels cannot be marshaled; estimation degrades to the fallback
	// constant instead of failing.
	if got := estimateSize(make(chan int)); got != fallbackSize {
		t.Errorf("expected fallback size %d, got %d", fallbackSize, got)
	}

	// Cyclic structures likewise.
	type node struct {
		Next *node `json:"next"`
	}
	n := &node{}
	n.Next = n
	if got := estimateSize(n); got != fallbackSize {
		t.Errorf("expected fallback size %d for cycle, got %d", fallbackSize, got)
	}
}
