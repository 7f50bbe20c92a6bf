// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"

	"github.com/oneconcern/eris/pkg/eris"
)

// MaxBlockSize is the largest object read into memory as a block
const MaxBlockSize = eris.BlockSize32KiB

// Store implementations know how to write entries to a K/V model.
//
// Typically this is something file system-like. Examples are S3, local FS, NFS, ...
// Implementations of this interface are assumed to be fairly simple.
//
// Get returns an error matching status.ErrNotFound when the key does not exist.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// BlockHaser tells if a block store holds a block
type BlockHaser interface {
	Has(context.Context, eris.Reference) (bool, error)
}

// BlockDeleter removes blocks from a block store
type BlockDeleter interface {
	Delete(context.Context, eris.Reference) error
}
