// Copyright © 2018 One Concern

package storage_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/memory"
	"github.com/oneconcern/eris/pkg/storage/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*storage.Blocks
	puts atomic.Int64
}

func (c *countingStore) Put(ctx context.Context, ref eris.Reference, block []byte) error {
	c.puts.Add(1)
	return c.Blocks.Put(ctx, ref, block)
}

func TestDedupCompliance(t *testing.T) {
	storetest.TestBlockStoreCompliance(t, func(testing.TB) eris.BlockStore {
		return storage.NewDedup(storage.NewBlocks(memory.New()), 1000, 0.01)
	})
}

func TestDedupSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{Blocks: storage.NewBlocks(memory.New())}
	d := storage.NewDedup(counting, 1000, 0.01)

	// 40 identical leaves, a padding leaf, two identical full nodes, a partial node and the root
	content := make([]byte, 40*eris.BlockSize1KiB)
	c, err := eris.Encode(ctx, eris.Bytes(content), d, eris.WithBlockSize(eris.BlockSize1KiB))
	require.NoError(t, err)

	assert.Equal(t, int64(40), d.Skipped())
	assert.Equal(t, int64(5), counting.puts.Load())

	decoded, err := eris.DecodeToBytes(ctx, c.String(), d)
	require.NoError(t, err)
	assert.Equal(t, content, decoded)

	// encoding again writes nothing
	_, err = eris.Encode(ctx, eris.Bytes(content), d, eris.WithBlockSize(eris.BlockSize1KiB))
	require.NoError(t, err)
	assert.Equal(t, int64(5), counting.puts.Load())
}
