// Copyright © 2018 One Concern

package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/zap"
)

var (
	_ eris.BlockStore = &Blocks{}
	_ BlockHaser      = &Blocks{}
	_ BlockDeleter    = &Blocks{}
)

// Blocks stores encrypted blocks as objects of a Store
type Blocks struct {
	store  Store
	pather func(eris.Reference) string
	l      *zap.Logger
}

// BlocksOption configures a Blocks adapter
type BlocksOption func(*Blocks)

// BlocksPrefix stores objects under some prefix
func BlocksPrefix(prefix string) BlocksOption {
	return func(b *Blocks) {
		b.pather = func(ref eris.Reference) string {
			return prefix + ref.String()
		}
	}
}

// BlocksPather injects the logic to name objects after block references
func BlocksPather(fn func(eris.Reference) string) BlocksOption {
	return func(b *Blocks) {
		if fn != nil {
			b.pather = fn
		}
	}
}

// BlocksLogger injects a logger
func BlocksLogger(l *zap.Logger) BlocksOption {
	return func(b *Blocks) {
		if l != nil {
			b.l = l
		}
	}
}

// NewBlocks adapts a Store to store encrypted blocks.
//
// By default, objects are named after the base32 representation of the reference.
func NewBlocks(store Store, opts ...BlocksOption) *Blocks {
	b := &Blocks{
		store:  store,
		pather: func(ref eris.Reference) string { return ref.String() },
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(b)
	}
	return b
}

func (b *Blocks) String() string {
	return b.store.String()
}

// Put a block
func (b *Blocks) Put(ctx context.Context, ref eris.Reference, block []byte) error {
	if len(block) > MaxBlockSize {
		return status.ErrObjectTooBig.WrapMessage(ref.String())
	}
	return b.store.Put(ctx, b.pather(ref), bytes.NewReader(block))
}

// Get a block
func (b *Blocks) Get(ctx context.Context, ref eris.Reference) ([]byte, error) {
	key := b.pather(ref)
	rdr, err := b.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rdr.Close() }()

	block, err := io.ReadAll(io.LimitReader(rdr, MaxBlockSize+1))
	if err != nil {
		return nil, err
	}
	if len(block) > MaxBlockSize {
		b.l.Warn("oversized object in block store", zap.String("key", key), zap.Stringer("store", b.store))
		return nil, status.ErrObjectTooBig.WrapMessage(key)
	}
	return block, nil
}

// Has tells if the store holds a block
func (b *Blocks) Has(ctx context.Context, ref eris.Reference) (bool, error) {
	return b.store.Has(ctx, b.pather(ref))
}

// Delete a block
func (b *Blocks) Delete(ctx context.Context, ref eris.Reference) error {
	return b.store.Delete(ctx, b.pather(ref))
}
