package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("sidechat")

// BoltStore persists keys in a single BoltDB bucket. Values are JSON, so
// records written by one process version remain readable by another.
type BoltStore struct {
	db    *bolt.DB
	quota int64
}

var _ Store = (*BoltStore)(nil)

type BoltStoreOption func(*BoltStore)

func WithBoltQuota(quota int64) BoltStoreOption {
	return func(s *BoltStore) {
		s.quota = quota
	}
}

func NewBoltStore(path string, options ...BoltStoreOption) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}

	ret := &BoltStore{
		db:    db,
		quota: DefaultQuota,
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(key string, out interface{}) error {
	var b []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return errors.Wrap(ErrNotFound, key)
		}
		b = append(b, v...)
		return nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(ErrCorrupt, "unmarshal %s: %v", key, err)
	}
	return nil
}

func (s *BoltStore) Set(key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", key)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), b)
	})
}

func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

func (s *BoltStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *BoltStore) BytesInUse() (int64, error) {
	var total int64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, v []byte) error {
			total += int64(len(k)) + int64(len(v))
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *BoltStore) Quota() int64 {
	return s.quota
}
