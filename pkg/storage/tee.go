// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"

	"github.com/oneconcern/eris/pkg/eris"
)

type tee struct {
	source      eris.BlockGetter
	destination eris.BlockPutter
}

// Tee reads blocks from a source and duplicates them to a destination store.
//
// Blocks which don't match their reference are not copied.
func Tee(source eris.BlockGetter, destination eris.BlockPutter) eris.BlockGetter {
	return &tee{source: source, destination: destination}
}

func (t *tee) Get(ctx context.Context, ref eris.Reference) ([]byte, error) {
	block, err := t.source.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !eris.VerifyBlock(ref, block) {
		// left to the decoder to report
		return block, nil
	}
	if err := t.destination.Put(ctx, ref, block); err != nil {
		return nil, err
	}
	return block, nil
}

// Replicate copies all the blocks of some content from a source to a destination store.
//
// A corrupted source block stops the replication with an eris.IntegrityError.
// Blocks fetched before it are copied already.
func Replicate(ctx context.Context, c eris.ReadCapability, source eris.BlockGetter, destination eris.BlockPutter) error {
	_, err := eris.Decode(ctx, c, Tee(source, destination), io.Discard)
	return err
}
