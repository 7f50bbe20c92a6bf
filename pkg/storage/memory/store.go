// Copyright © 2018 One Concern

// Package memory implements an in-memory object store
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
)

var _ storage.Store = &store{}

// New creates an empty in-memory store. It is safe for concurrent use.
func New() storage.Store {
	return &store{objects: make(map[string][]byte)}
}

type store struct {
	mx      sync.RWMutex
	objects map[string][]byte
}

func (s *store) String() string {
	return "memory"
}

func (s *store) Has(_ context.Context, key string) (bool, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, status.ErrNotFound.WrapMessage(key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *store) Put(_ context.Context, key string, rdr io.Reader) error {
	data, err := io.ReadAll(rdr)
	if err != nil {
		return err
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.objects[key] = data
	return nil
}

func (s *store) Delete(_ context.Context, key string) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *store) Keys(_ context.Context) ([]string, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *store) Clear(_ context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.objects = make(map[string][]byte)
	return nil
}
