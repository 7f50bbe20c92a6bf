// Copyright © 2018 One Concern

package eris

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/oneconcern/eris/internal/rand"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type getterFunc func(context.Context, Reference) ([]byte, error)

func (fn getterFunc) Get(ctx context.Context, ref Reference) ([]byte, error) {
	return fn(ctx, ref)
}

func TestRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 100, 1023, 1024, 1025, 2000, 16 * 1024, 16*1024 + 1, 100 * 1024, 32 * 1024, 32*1024 + 1}

	for _, blockSize := range []int{BlockSize1KiB, BlockSize32KiB} {
		for _, size := range sizes {
			bs, n := blockSize, size
			t.Run("", func(t *testing.T) {
				t.Parallel()
				ctx := context.Background()
				data := rand.Bytes(n)

				c, blocks, err := EncodeToMap(ctx, Bytes(data), WithBlockSize(bs))
				require.NoError(t, err)

				decoded, err := DecodeToBytes(ctx, c.String(), blocks)
				require.NoError(t, err)
				require.Len(t, decoded, n)
				assert.True(t, bytes.Equal(data, decoded), "round trip mismatch for %d bytes with blocks of %d", n, bs)
			})
		}
	}
}

func TestDecoderChunks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	data := rand.Bytes(5000)

	c, blocks, err := EncodeToMap(ctx, Bytes(data), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)

	dec, err := NewDecoder(c, blocks)
	require.NoError(t, err)

	var chunks [][]byte
	for dec.Next(ctx) {
		chunks = append(chunks, dec.Bytes())
	}
	require.NoError(t, dec.Err())
	require.Len(t, chunks, 5)
	for _, chunk := range chunks[:4] {
		assert.Len(t, chunk, BlockSize1KiB)
	}
	assert.Len(t, chunks[4], 5000-4*BlockSize1KiB)
	assert.Equal(t, data, bytes.Join(chunks, nil))
}

func TestDecoderReader(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	data := rand.Bytes(70 * 1024)

	c, blocks, err := EncodeToMap(ctx, Reader(bytes.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, BlockSize32KiB, c.BlockSize)

	dec, err := NewDecoder(c, blocks)
	require.NoError(t, err)
	decoded, err := io.ReadAll(dec.Reader(ctx))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDecodeToString(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const text = "Hello world! Ünïcödé text survives the round trip."

	c, blocks, err := EncodeToMap(ctx, Text(text), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)

	decoded, err := DecodeToString(ctx, c.String(), blocks)
	require.NoError(t, err)
	assert.Equal(t, text, decoded)

	urn, err := EncodeToURN(ctx, Text(text), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)
	assert.Equal(t, c.String(), urn)
}

func TestDecoderTamperedBlocks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	data := rand.Bytes(20 * 1024)

	c, blocks, err := EncodeToMap(ctx, Bytes(data), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)
	require.Len(t, blocks, 21+2+1)

	for ref := range blocks {
		for _, bit := range []int{0, 7, 8*BlockSize1KiB - 1} {
			tampered := make(BlockMap, len(blocks))
			for k, v := range blocks {
				tampered[k] = v
			}
			corrupted := append([]byte(nil), blocks[ref]...)
			corrupted[bit/8] ^= 1 << (bit % 8)
			tampered[ref] = corrupted

			decoded, err := DecodeToBytes(ctx, c.String(), tampered)
			require.Error(t, err)
			assert.Nil(t, decoded)
			assert.True(t, errors.Is(err, ErrIntegrity), "expected an integrity error, got: %v", err)

			var integrityErr *IntegrityError
			require.True(t, errors.As(err, &integrityErr))
			assert.Equal(t, ref, integrityErr.Reference)
		}
	}
}

func TestDecoderCorruptedNodeIsNotTraversed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, blocks, err := EncodeToMap(ctx, Bytes(rand.Bytes(2000)), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)
	require.Equal(t, 1, c.Level)

	root := append([]byte(nil), blocks[c.Root.Reference]...)
	root[0] ^= 0xff
	blocks[c.Root.Reference] = root

	var fetched []Reference
	getter := getterFunc(func(ctx context.Context, ref Reference) ([]byte, error) {
		fetched = append(fetched, ref)
		return blocks.Get(ctx, ref)
	})

	_, err = Decode(ctx, c, getter, io.Discard)
	assert.True(t, errors.Is(err, ErrIntegrity))
	assert.Equal(t, []Reference{c.Root.Reference}, fetched)
}

func TestDecoderTruncatedBlock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, blocks, err := EncodeToMap(ctx, Text("short"), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)
	blocks[c.Root.Reference] = blocks[c.Root.Reference][:100]

	_, err = DecodeToBytes(ctx, c.String(), blocks)
	assert.True(t, errors.Is(err, ErrIntegrity))
}

func TestDecoderBlockClassMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, blocks, err := EncodeToMap(ctx, Bytes(rand.Bytes(2000)), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)

	binary, err := c.MarshalBinary()
	require.NoError(t, err)
	binary[0] = class32KiB
	var mismatched ReadCapability
	require.NoError(t, mismatched.UnmarshalBinary(binary))
	require.Equal(t, BlockSize32KiB, mismatched.BlockSize)

	_, err = Decode(ctx, mismatched, blocks, io.Discard)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.False(t, errors.Is(err, ErrIntegrity))
}

func TestDecoderMissingBlocks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, blocks, err := EncodeToMap(ctx, Bytes(rand.Bytes(18*1024)), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)

	for ref := range blocks {
		missing := make(BlockMap, len(blocks))
		for k, v := range blocks {
			if k != ref {
				missing[k] = v
			}
		}

		_, err := DecodeToBytes(ctx, c.String(), missing)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.True(t, errors.Is(err, status.ErrNotFound))

		var notFound *NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, ref, notFound.Reference)
	}

	nilGetter := getterFunc(func(context.Context, Reference) ([]byte, error) { return nil, nil })
	_, err = Decode(ctx, c, nilGetter, io.Discard)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDecoderStoreError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("connection reset")

	c, _, err := EncodeToMap(ctx, Text("some text"))
	require.NoError(t, err)

	failing := getterFunc(func(context.Context, Reference) ([]byte, error) { return nil, boom })
	_, err = DecodeToBytes(ctx, c.String(), failing)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestDecoderPreOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blocks := make(BlockMap)
	enc, err := NewEncoder(Bytes(rand.Bytes(17*1024)), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)
	levels := make(map[Reference]int)
	for enc.Next(ctx) {
		b := enc.Block()
		levels[b.Reference] = b.Level
		require.NoError(t, blocks.Put(ctx, b.Reference, b.Data))
	}
	require.NoError(t, enc.Err())
	c := enc.Capability()
	require.Equal(t, 2, c.Level)

	var order []int
	getter := getterFunc(func(ctx context.Context, ref Reference) ([]byte, error) {
		order = append(order, levels[ref])
		return blocks.Get(ctx, ref)
	})
	_, err = Decode(ctx, c, getter, io.Discard)
	require.NoError(t, err)

	expected := []int{2, 1}
	for i := 0; i < 16; i++ {
		expected = append(expected, 0)
	}
	expected = append(expected, 1, 0, 0)
	assert.Equal(t, expected, order)
}

func TestDecoderBadPadding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// a leaf without the padding marker
	ciphertext, pair := EncryptBlock(make([]byte, BlockSize1KiB), Secret{})
	blocks := BlockMap{pair.Reference: ciphertext}
	c := ReadCapability{BlockSize: BlockSize1KiB, Root: pair}

	_, err := DecodeToBytes(ctx, c.String(), blocks)
	assert.True(t, errors.Is(err, ErrFormat))

	// a node without children
	node, nodePair := EncryptBlock(make([]byte, BlockSize1KiB), Secret{})
	blocks[nodePair.Reference] = node
	c = ReadCapability{BlockSize: BlockSize1KiB, Level: 1, Root: nodePair}
	_, err = DecodeToBytes(ctx, c.String(), blocks)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestDecoderCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	c, blocks, err := EncodeToMap(ctx, Bytes(rand.Bytes(10*1024)), WithBlockSize(BlockSize1KiB))
	require.NoError(t, err)

	dec, err := NewDecoder(c, blocks)
	require.NoError(t, err)
	require.True(t, dec.Next(ctx))

	cancel()
	assert.False(t, dec.Next(ctx))
	assert.True(t, errors.Is(dec.Err(), context.Canceled))
}

func TestNewDecoderErrors(t *testing.T) {
	_, err := NewDecoder(ReadCapability{BlockSize: 4096}, BlockMap{})
	assert.True(t, errors.Is(err, ErrInvalidArity))

	_, err = NewDecoder(ReadCapability{BlockSize: BlockSize1KiB, Level: 300}, BlockMap{})
	assert.True(t, errors.Is(err, ErrFormat))

	_, err = DecodeToBytes(context.Background(), "urn:erisx2:nope", BlockMap{})
	assert.True(t, errors.Is(err, ErrFormat))
}
