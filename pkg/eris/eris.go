// Copyright © 2018 One Concern

package eris

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Encode content into a store, and return its read capability.
//
// Blocks are put in the order they are produced. The first error returned by the store stops the encoding:
// blocks already stored are left as-is.
func Encode(ctx context.Context, content Content, store BlockPutter, opts ...Option) (ReadCapability, error) {
	enc, err := NewEncoder(content, opts...)
	if err != nil {
		return ReadCapability{}, err
	}
	defer func() { _ = enc.Close() }()

	for enc.Next(ctx) {
		b := enc.Block()
		if err := store.Put(ctx, b.Reference, b.Data); err != nil {
			return ReadCapability{}, fmt.Errorf("storing block %v: %w", b.Reference, err)
		}
	}
	if err := enc.Err(); err != nil {
		return ReadCapability{}, err
	}
	return enc.Capability(), nil
}

// EncodeToURN computes the read capability of some content without storing any block
func EncodeToURN(ctx context.Context, content Content, opts ...Option) (string, error) {
	c, err := Encode(ctx, content, Discard, opts...)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// EncodeToMap encodes content in memory and returns its read capability along with all its blocks
func EncodeToMap(ctx context.Context, content Content, opts ...Option) (ReadCapability, BlockMap, error) {
	blocks := make(BlockMap)
	c, err := Encode(ctx, content, blocks, opts...)
	if err != nil {
		return ReadCapability{}, nil, err
	}
	return c, blocks, nil
}

// Decode the content of a read capability into a writer.
//
// It returns the number of bytes written.
func Decode(ctx context.Context, c ReadCapability, store BlockGetter, w io.Writer, opts ...Option) (int64, error) {
	dec, err := NewDecoder(c, store, opts...)
	if err != nil {
		return 0, err
	}

	var written int64
	for dec.Next(ctx) {
		n, err := w.Write(dec.Bytes())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, dec.Err()
}

// DecodeToBytes decodes the content of a read capability URN in memory
func DecodeToBytes(ctx context.Context, urn string, store BlockGetter, opts ...Option) ([]byte, error) {
	c, err := ParseCapability(urn)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, c.BlockSize))
	if _, err := Decode(ctx, c, store, buf, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeToString decodes the content of a read capability URN as a string
func DecodeToString(ctx context.Context, urn string, store BlockGetter, opts ...Option) (string, error) {
	b, err := DecodeToBytes(ctx, urn, store, opts...)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
