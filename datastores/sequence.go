package datastores

import (
	"context"
	"strconv"
)

const (
	// CounterKey is the reserved key holding the identifier counter.
	// It is not a decimal number, so it never collides with issued ids.
	CounterKey  = "COUNTER"
	counterAttr = "value"
)

// Sequence mints identifiers from an atomic counter kept in a [KV].
// It holds no local state: uniqueness relies on [KV.Add] being atomic.
type Sequence struct {
	KV  KV
	Key string // defaults to [CounterKey]
}

// NextID increments the counter by one and returns the new value in decimal.
func (s *Sequence) NextID(ctx context.Context) (string, error) {
	key := s.Key
	if key == "" {
		key = CounterKey
	}
	n, err := s.KV.Add(ctx, key, counterAttr, 1)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// isIssuedID reports whether id has the shape of an id minted by [Sequence].
func isIssuedID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
