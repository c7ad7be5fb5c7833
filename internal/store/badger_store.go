package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const globalStateKeyPrefix = "global_state:"

type badgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger database at dir. An empty dir
// runs badger in memory.
func NewBadgerStore(dir string) (GlobalStateStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(globalStateKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrStateNotFound
		}
		if err != nil {
			return fmt.Errorf("get global state: %w", err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *badgerStore) Set(ctx context.Context, key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(globalStateKeyPrefix+key), value); err != nil {
			return fmt.Errorf("set global state: %w", err)
		}
		return nil
	})
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
