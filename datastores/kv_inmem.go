package datastores

import (
	"context"
	"maps"
	"strconv"
	"sync"
)

// KVInmem implements [KV] in process memory.
type KVInmem struct {
	mu    sync.Mutex
	items map[string]Item
}

var _ KV = (*KVInmem)(nil)

func NewKVInmem() *KVInmem {
	return &KVInmem{items: make(map[string]Item)}
}

func (s *KVInmem) Put(_ context.Context, key string, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = maps.Clone(item)
	return nil
}

func (s *KVInmem) Get(_ context.Context, key string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return maps.Clone(item), nil
}

func (s *KVInmem) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *KVInmem) Scan(_ context.Context, skip string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, 0, len(s.items))
	for key, item := range s.items {
		if key != skip {
			items = append(items, maps.Clone(item))
		}
	}
	return items, nil
}

func (s *KVInmem) Add(_ context.Context, key, attr string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		item = Item{}
		s.items[key] = item
	}
	var n int64
	if v, ok := item[attr]; ok {
		var err error
		n, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, unavailable("inmem: add", err)
		}
	}
	n += delta
	item[attr] = strconv.FormatInt(n, 10)
	return n, nil
}
