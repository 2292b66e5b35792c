package store

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore is an in-memory Store used by tests and by the single-process
// harness. Byte accounting counts key and value lengths, matching how the
// backing browser storage reports bytes in use.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int64
}

var _ Store = (*MemoryStore)(nil)

type MemoryStoreOption func(*MemoryStore)

func WithQuota(quota int64) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.quota = quota
	}
}

func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	ret := &MemoryStore{
		data:  map[string][]byte{},
		quota: DefaultQuota,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *MemoryStore) Get(key string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data[key]
	if !ok {
		return errors.Wrap(ErrNotFound, key)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(ErrCorrupt, "unmarshal %s: %v", key, err)
	}
	return nil
}

func (s *MemoryStore) Set(key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = b
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) BytesInUse() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for k, v := range s.data {
		total += int64(len(k)) + int64(len(v))
	}
	return total, nil
}

func (s *MemoryStore) Quota() int64 {
	return s.quota
}
