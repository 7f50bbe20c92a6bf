// Copyright © 2018 One Concern

package vectors

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardVectors(t *testing.T) {
	ctx := context.Background()
	vectors, err := Standard(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, vectors)

	for _, toPin := range vectors {
		v := toPin
		t.Run(v.Description, func(t *testing.T) {
			t.Parallel()
			assert.True(t, strings.HasPrefix(v.URN, eris.URNPrefix))
			assert.Equal(t, v.BlockSize, v.ReadCapability.BlockSize)
			require.NoError(t, Verify(ctx, v))
		})
	}
}

func TestVectorFiles(t *testing.T) {
	ctx := context.Background()
	files, err := filepath.Glob(filepath.Join("testdata", "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 9)

	for _, toPin := range files {
		path := toPin
		t.Run(filepath.Base(path), func(t *testing.T) {
			t.Parallel()
			v, err := ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, Verify(ctx, v))

			c, err := eris.ParseCapability(v.URN)
			require.NoError(t, err)
			assert.Equal(t, v.ReadCapability.Level, c.Level)
			assert.Equal(t, v.BlockSize, c.BlockSize)
		})
	}
}

func TestStandardIsReproducible(t *testing.T) {
	first, err := Standard(context.Background())
	require.NoError(t, err)
	second, err := Standard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVectorShapes(t *testing.T) {
	vectors, err := Standard(context.Background())
	require.NoError(t, err)

	byDescription := make(map[string]Vector, len(vectors))
	for _, v := range vectors {
		byDescription[v.Description] = v
	}
	assert.Len(t, byDescription["empty content"].Blocks, 1)
	assert.Equal(t, 0, byDescription["empty content"].ReadCapability.Level)
	assert.Len(t, byDescription["exactly one 1KiB block, padded into two"].Blocks, 3)
	assert.Equal(t, 1, byDescription["full level 1 node of 1KiB blocks"].ReadCapability.Level)
	assert.Equal(t, 2, byDescription["two levels of 1KiB blocks"].ReadCapability.Level)
	assert.NotEqual(t,
		byDescription["short text"].URN,
		byDescription["short text with a convergence secret"].URN,
	)
}

func TestVerifyDetectsTampering(t *testing.T) {
	ctx := context.Background()
	v, err := Generate(ctx, 1, "tampered", []byte("some content"), eris.Secret{}, eris.BlockSize1KiB)
	require.NoError(t, err)

	t.Run("urn", func(t *testing.T) {
		other, err := Generate(ctx, 2, "other", []byte("other content"), eris.Secret{}, eris.BlockSize1KiB)
		require.NoError(t, err)
		bad := v
		bad.URN = other.URN
		assert.True(t, errors.Is(Verify(ctx, bad), ErrMismatch))
	})

	t.Run("block", func(t *testing.T) {
		bad := v
		bad.Blocks = make(map[string]string, len(v.Blocks))
		for ref := range v.Blocks {
			bad.Blocks[ref] = encode(make([]byte, eris.BlockSize1KiB))
		}
		assert.True(t, errors.Is(Verify(ctx, bad), ErrMismatch))
	})

	t.Run("content", func(t *testing.T) {
		bad := v
		bad.Content = encode([]byte("other content"))
		assert.True(t, errors.Is(Verify(ctx, bad), ErrMismatch))
	})
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	v, err := Generate(ctx, 7, "json", []byte("round trip"), eris.Secret{}, eris.BlockSize1KiB)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, v))
	assert.Contains(t, buf.String(), `"convergence-secret"`)
	assert.Contains(t, buf.String(), `"read-capability"`)

	path := filepath.Join(t.TempDir(), "vector.json")
	require.NoError(t, WriteFile(path, v))
	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, v, back)
	require.NoError(t, Verify(ctx, back))
}
