// Copyright © 2018 One Concern

package localfs

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/oneconcern/eris/internal/rand"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/storetest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	storetest.TestStoreCompliance(t, func(testing.TB) storage.Store {
		return New(afero.NewMemMapFs())
	})
}

func TestLocalFSAtomic(t *testing.T) {
	storetest.TestStoreCompliance(t, func(tb testing.TB) storage.Store {
		s, err := NewAtomic(afero.NewMemMapFs())
		require.NoError(tb, err)
		return s
	})
}

func TestLocalFSOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewAtomic(afero.NewBasePathFs(afero.NewOsFs(), dir))
	require.NoError(t, err)
	assert.Contains(t, s.String(), "localfs-atomic@")

	ctx := context.Background()
	blocks := storage.NewBlocks(s, storage.BlocksPrefix("blocks/"))
	data := rand.Bytes(100 * 1024)

	c, err := eris.Encode(ctx, eris.Bytes(data), blocks)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "blocks", "*"))
	require.NoError(t, err)
	assert.Len(t, matches, 5, "4 leaves and a root node")

	decoded, err := eris.DecodeToBytes(ctx, c.String(), blocks)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestLocalFSAtomicStagingKeys(t *testing.T) {
	s, err := NewAtomic(afero.NewMemMapFs())
	require.NoError(t, err)

	err = s.Put(context.Background(), ".put-stage/x", bytes.NewReader([]byte("x")))
	require.Error(t, err)

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalFSAtomicConcurrentPuts(t *testing.T) {
	s, err := NewAtomic(afero.NewMemMapFs())
	require.NoError(t, err)
	ctx := context.Background()
	data := rand.Bytes(eris.BlockSize32KiB)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, "same-key", bytes.NewReader(data)))
		}()
	}
	wg.Wait()

	rdr, err := s.Get(ctx, "same-key")
	require.NoError(t, err)
	defer rdr.Close()
	got, err := io.ReadAll(rdr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
