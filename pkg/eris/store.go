// Copyright © 2018 One Concern

package eris

import (
	"context"

	"github.com/oneconcern/eris/pkg/storage/status"
)

// BlockPutter stores encrypted blocks under their reference
type BlockPutter interface {
	Put(ctx context.Context, ref Reference, block []byte) error
}

// BlockGetter retrieves encrypted blocks by reference.
//
// Implementations return an error matching status.ErrNotFound when they don't hold the block.
// Blocks are verified against their reference by the decoder: a getter does not need to be trusted.
type BlockGetter interface {
	Get(ctx context.Context, ref Reference) ([]byte, error)
}

// BlockStore stores and retrieves encrypted blocks
type BlockStore interface {
	BlockPutter
	BlockGetter
}

// BlockMap is an in-memory BlockStore. It is not safe for concurrent use.
type BlockMap map[Reference][]byte

// Put a copy of the block in the map
func (m BlockMap) Put(_ context.Context, ref Reference, block []byte) error {
	m[ref] = append([]byte(nil), block...)
	return nil
}

// Get a block from the map
func (m BlockMap) Get(_ context.Context, ref Reference) ([]byte, error) {
	block, ok := m[ref]
	if !ok {
		return nil, status.ErrNotFound.WrapMessage(ref.String())
	}
	return block, nil
}

type discard struct{}

// Discard is a BlockStore which drops all blocks. It may be used to compute a read capability without storing anything.
var Discard BlockStore = discard{}

func (discard) Put(context.Context, Reference, []byte) error { return nil }

func (discard) Get(_ context.Context, ref Reference) ([]byte, error) {
	return nil, status.ErrNotFound.WrapMessage(ref.String())
}
