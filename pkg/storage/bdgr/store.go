// Copyright © 2018 One Concern

// Package bdgr implements an embedded object store with badger
package bdgr

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/zap"
)

var objPref = []byte("obj:")

var (
	_ storage.Store = &Store{}
	_ io.Closer     = &Store{}
)

func badgerRewriteError(key string, err error) error {
	switch err {
	case nil:
		return nil
	case badger.ErrKeyNotFound:
		return status.ErrNotFound.WrapMessage(key)
	case badger.ErrEmptyKey:
		return status.ErrInvalidResource.WrapMessage("key is required")
	default:
		return status.ErrStorageAPI.Wrap(err)
	}
}

// Option configures the badger store
type Option func(*Store)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.l = logger
		}
	}
}

// SyncWrites makes every write durable before returning
func SyncWrites(enabled bool) Option {
	return func(s *Store) {
		s.sync = enabled
	}
}

// Store keeps objects in a badger database located in a directory
type Store struct {
	baseDir string
	sync    bool
	l       *zap.Logger

	db    *badger.DB
	init  sync.Once
	close sync.Once
}

// New opens or creates a badger store in baseDir
func New(baseDir string, opts ...Option) (*Store, error) {
	s := &Store{
		baseDir: baseDir,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	var err error
	s.init.Do(func() {
		options := badger.DefaultOptions(s.baseDir).
			WithSyncWrites(s.sync).
			WithLogger(nil)

		var db *badger.DB
		db, err = badger.Open(options)
		if err != nil {
			err = status.ErrStorageAPI.Wrap(err)
			return
		}
		s.db = db
		s.l.Debug("opened badger store", zap.String("dir", s.baseDir))
	})
	return err
}

// Close the underlying database
func (s *Store) Close() error {
	var err error
	s.close.Do(func() {
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

func objKey(key string) []byte {
	return append(objPref[:len(objPref):len(objPref)], key...)
}

func (s *Store) String() string {
	return "badger://" + s.baseDir
}

func (s *Store) Has(_ context.Context, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(objKey(key))
		return badgerRewriteError(key, err)
	})
	if errors.Is(err, status.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(objKey(key))
		if err != nil {
			return badgerRewriteError(key, err)
		}
		data, err = item.ValueCopy(nil)
		return badgerRewriteError(key, err)
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Put(_ context.Context, key string, rdr io.Reader) error {
	data, err := io.ReadAll(rdr)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return badgerRewriteError(key, txn.Set(objKey(key), data))
	})
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return badgerRewriteError(key, txn.Delete(objKey(key)))
	})
}

func (s *Store) scan(fn func(key []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(objPref); iter.ValidForPrefix(objPref); iter.Next() {
			if err := fn(iter.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.scan(func(key []byte) error {
		keys = append(keys, string(key[len(objPref):]))
		return nil
	})
	if err != nil {
		return nil, badgerRewriteError("", err)
	}
	return keys, nil
}

// Clear deletes all objects, in as many transactions as needed
func (s *Store) Clear(_ context.Context) error {
	var keys [][]byte
	if err := s.scan(func(key []byte) error {
		keys = append(keys, key)
		return nil
	}); err != nil {
		return badgerRewriteError("", err)
	}
	s.l.Debug("clearing badger store", zap.Int("objects", len(keys)))

	txn := s.db.NewTransaction(true)
	defer func() { txn.Discard() }()
	for _, key := range keys {
		err := txn.Delete(key)
		if err == badger.ErrTxnTooBig {
			if err = txn.Commit(); err != nil {
				return badgerRewriteError("", err)
			}
			txn = s.db.NewTransaction(true)
			err = txn.Delete(key)
		}
		if err != nil {
			return badgerRewriteError("", err)
		}
	}
	return badgerRewriteError("", txn.Commit())
}
