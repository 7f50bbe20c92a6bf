// Copyright © 2018 One Concern

// Package storetest provides the compliance tests shared by all store implementations
package storetest

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/oneconcern/eris/internal/rand"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BlockStoreFactory builds a block store for a test
type BlockStoreFactory func(t testing.TB) eris.BlockStore

// StoreFactory builds an object store for a test
type StoreFactory func(t testing.TB) storage.Store

func randomBlock(t testing.TB, size int) (eris.Reference, []byte) {
	block, pair := eris.EncryptBlock(rand.Bytes(size), eris.Secret{})
	require.Len(t, block, size)
	return pair.Reference, block
}

// TestBlockStoreCompliance checks the behavior expected from an eris.BlockStore
func TestBlockStoreCompliance(t *testing.T, f BlockStoreFactory) {
	t.Run("put then get", func(t *testing.T) {
		s := f(t)
		ctx := context.Background()

		for _, size := range []int{eris.BlockSize1KiB, eris.BlockSize32KiB} {
			ref, block := randomBlock(t, size)
			require.NoError(t, s.Put(ctx, ref, block))

			got, err := s.Get(ctx, ref)
			require.NoError(t, err)
			require.True(t, bytes.Equal(block, got))
		}
	})

	t.Run("put is idempotent", func(t *testing.T) {
		s := f(t)
		ctx := context.Background()

		ref, block := randomBlock(t, eris.BlockSize1KiB)
		require.NoError(t, s.Put(ctx, ref, block))
		require.NoError(t, s.Put(ctx, ref, block))

		got, err := s.Get(ctx, ref)
		require.NoError(t, err)
		require.Equal(t, block, got)
	})

	t.Run("missing block is not found", func(t *testing.T) {
		s := f(t)

		ref, _ := randomBlock(t, eris.BlockSize1KiB)
		_, err := s.Get(context.Background(), ref)
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrNotFound), "expected a not found error, got: %v", err)
	})

	t.Run("has and delete", func(t *testing.T) {
		s := f(t)
		haser, ok := s.(storage.BlockHaser)
		if !ok {
			t.Skip("store does not implement Has")
		}
		ctx := context.Background()

		ref, block := randomBlock(t, eris.BlockSize1KiB)
		has, err := haser.Has(ctx, ref)
		require.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, s.Put(ctx, ref, block))
		has, err = haser.Has(ctx, ref)
		require.NoError(t, err)
		assert.True(t, has)

		deleter, ok := s.(storage.BlockDeleter)
		if !ok {
			return
		}
		require.NoError(t, deleter.Delete(ctx, ref))
		_, err = s.Get(ctx, ref)
		assert.True(t, errors.Is(err, status.ErrNotFound))
	})

	t.Run("encode and decode content", func(t *testing.T) {
		s := f(t)
		ctx := context.Background()

		for _, size := range []int{0, 2000, 40 * 1024} {
			data := rand.Bytes(size)
			c, err := eris.Encode(ctx, eris.Bytes(data), s, eris.WithBlockSize(eris.BlockSize1KiB))
			require.NoError(t, err)

			decoded, err := eris.DecodeToBytes(ctx, c.String(), s)
			require.NoError(t, err)
			require.True(t, bytes.Equal(data, decoded))
		}
	})
}

// TestStoreCompliance checks the behavior expected from a storage.Store, then checks it as a block store
func TestStoreCompliance(t *testing.T, f StoreFactory) {
	t.Run("put get has", func(t *testing.T) {
		s := f(t)
		ctx := context.Background()
		key := "object-" + rand.LetterString(10)
		data := rand.Bytes(500)

		has, err := s.Has(ctx, key)
		require.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, s.Put(ctx, key, bytes.NewReader(data)))

		has, err = s.Has(ctx, key)
		require.NoError(t, err)
		assert.True(t, has)

		rdr, err := s.Get(ctx, key)
		require.NoError(t, err)
		got, err := io.ReadAll(rdr)
		require.NoError(t, err)
		require.NoError(t, rdr.Close())
		assert.Equal(t, data, got)

		assert.NotEmpty(t, s.String())
	})

	t.Run("get missing object", func(t *testing.T) {
		s := f(t)
		_, err := s.Get(context.Background(), "missing-"+rand.LetterString(10))
		require.Error(t, err)
		assert.True(t, errors.Is(err, status.ErrNotFound), "expected a not found error, got: %v", err)
	})

	t.Run("keys delete clear", func(t *testing.T) {
		s := f(t)
		ctx := context.Background()
		require.NoError(t, s.Clear(ctx))

		names := []string{"a-" + rand.LetterString(8), "b-" + rand.LetterString(8), "c-" + rand.LetterString(8)}
		for _, name := range names {
			require.NoError(t, s.Put(ctx, name, bytes.NewReader([]byte(name))))
		}

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, names, keys)

		require.NoError(t, s.Delete(ctx, names[0]))
		has, err := s.Has(ctx, names[0])
		require.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, s.Clear(ctx))
		keys, err = s.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("as block store", func(t *testing.T) {
		TestBlockStoreCompliance(t, func(t testing.TB) eris.BlockStore {
			return storage.NewBlocks(f(t))
		})
	})
}
