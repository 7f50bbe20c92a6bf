// Copyright © 2018 One Concern

package storage

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/oneconcern/eris/pkg/eris"
)

// DedupStore is a block store which can tell if it already holds a block
type DedupStore interface {
	eris.BlockStore
	BlockHaser
}

var _ eris.BlockStore = &Dedup{}

// Dedup skips writing blocks which are already stored.
//
// A bloom filter remembers the references written through this store. When a reference is definitely
// new, the block is written without checking the store. Otherwise, the store is checked with Has
// before writing: false positives of the filter never skip a write.
type Dedup struct {
	store   DedupStore
	mx      sync.Mutex
	seen    *bloom.BloomFilter
	skipped atomic.Int64
}

// NewDedup wraps a block store with a filter sized for the expected number of blocks
func NewDedup(store DedupStore, expected uint, falsePositiveRate float64) *Dedup {
	if expected == 0 {
		expected = 1 << 16
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	return &Dedup{
		store: store,
		seen:  bloom.NewWithEstimates(expected, falsePositiveRate),
	}
}

func (d *Dedup) String() string {
	return storeName(d.store)
}

// Put a block unless the store already holds it
func (d *Dedup) Put(ctx context.Context, ref eris.Reference, block []byte) error {
	d.mx.Lock()
	maybe := d.seen.Test(ref[:])
	d.mx.Unlock()

	if maybe {
		has, err := d.store.Has(ctx, ref)
		if err != nil {
			return err
		}
		if has {
			d.skipped.Add(1)
			return nil
		}
	}

	if err := d.store.Put(ctx, ref, block); err != nil {
		return err
	}

	d.mx.Lock()
	d.seen.Add(ref[:])
	d.mx.Unlock()
	return nil
}

// Get a block
func (d *Dedup) Get(ctx context.Context, ref eris.Reference) ([]byte, error) {
	return d.store.Get(ctx, ref)
}

// Has tells if the store holds a block
func (d *Dedup) Has(ctx context.Context, ref eris.Reference) (bool, error) {
	return d.store.Has(ctx, ref)
}

// Skipped is the number of writes skipped because the block was already stored
func (d *Dedup) Skipped() int64 {
	return d.skipped.Load()
}
