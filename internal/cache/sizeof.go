package cache

import "encoding/json"

// fallbackSize is charged for values that cannot be serialized
// (cyclic structures, channels, funcs). Roughly 1KB.
const fallbackSize = 1024

// estimateSize returns an approximate byte footprint for a cached value.
// Strings and byte slices are measured exactly; fixed-width scalars get
// small constants; everything else is measured by its JSON-serialized
// length. Estimation never fails: unserializable values fall back to a
// fixed constant so Set stays total.
func estimateSize(value any) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case string:
		return int64(len(v))
	case []byte:
		return int64(len(v))
	case bool:
		return 1
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return 8
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fallbackSize
		}
		return int64(len(b))
	}
}
