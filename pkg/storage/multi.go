// Copyright © 2018 One Concern

package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MultiStoreUnit is used to specify multiple operations, some of which are tolerated to fail
type MultiStoreUnit struct {
	// Store is the backend to be accessed
	Store eris.BlockStore

	// TolerateFailure to false breaks multi-store operations whenever an error is encountered.
	TolerateFailure bool
}

var _ eris.BlockStore = &Multi{}

// Multi mirrors blocks to several block stores.
//
// Put writes to all stores concurrently. Get tries each store in turn and returns the first block
// that hashes to its reference.
type Multi struct {
	units []MultiStoreUnit
	l     *zap.Logger
}

// NewMulti builds a block store over several block stores
func NewMulti(l *zap.Logger, units ...MultiStoreUnit) *Multi {
	if l == nil {
		l = zap.NewNop()
	}
	return &Multi{units: units, l: l}
}

func (m *Multi) String() string {
	names := make([]string, 0, len(m.units))
	for _, u := range m.units {
		names = append(names, storeName(u.Store))
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Put duplicates write operations to all stores
func (m *Multi) Put(ctx context.Context, ref eris.Reference, block []byte) error {
	var (
		g    errgroup.Group
		mx   sync.Mutex
		errs error
	)

	for _, toPin := range m.units {
		unit := toPin
		g.Go(func() error {
			err := unit.Store.Put(ctx, ref, block)
			if err == nil {
				return nil
			}
			if unit.TolerateFailure {
				m.l.Warn("tolerated failure on mirror", zap.String("store", storeName(unit.Store)), zap.Stringer("reference", ref), zap.Error(err))
				return nil
			}
			mx.Lock()
			errs = multierr.Append(errs, err)
			mx.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Get the block from the first store that holds a copy matching its reference.
//
// When every copy found is corrupted, the first one is returned and the decoder reports it.
func (m *Multi) Get(ctx context.Context, ref eris.Reference) ([]byte, error) {
	var (
		errs      error
		corrupted []byte
	)
	for _, unit := range m.units {
		block, err := unit.Store.Get(ctx, ref)
		if err == nil {
			if eris.VerifyBlock(ref, block) {
				return block, nil
			}
			m.l.Warn("corrupted block on mirror", zap.String("store", storeName(unit.Store)), zap.Stringer("reference", ref))
			if corrupted == nil {
				corrupted = block
			}
			continue
		}
		if errors.Is(err, status.ErrNotFound) {
			continue
		}
		if !unit.TolerateFailure {
			return nil, err
		}
		m.l.Warn("tolerated failure on mirror", zap.String("store", storeName(unit.Store)), zap.Stringer("reference", ref), zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	if corrupted != nil {
		return corrupted, nil
	}
	if errs != nil {
		return nil, status.ErrNotFound.Wrap(errs)
	}
	return nil, status.ErrNotFound.WrapMessage(ref.String())
}

func storeName(s interface{}) string {
	if named, ok := s.(interface{ String() string }); ok {
		return named.String()
	}
	return "blocks"
}
