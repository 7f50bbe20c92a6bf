// Copyright © 2018 One Concern

// Package localfs stores objects as files on a local file system
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"github.com/spf13/afero"
)

// DefaultPath is the location of the store when no file system is provided
var DefaultPath = filepath.Join(".eris", "blocks")

// New creates a new local file system backed storage model
func New(fs afero.Fs) storage.Store {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), DefaultPath)
	}
	return &localFS{
		fs: fs,
	}
}

type localFS struct {
	fs afero.Fs
}

func (l *localFS) Has(_ context.Context, key string) (bool, error) {
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotFound.WrapMessage(key)
	}
	return l.fs.Open(key)
}

func (l *localFS) Put(_ context.Context, key string, source io.Reader) error {
	if dir := filepath.Dir(key); dir != "" {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %w", key, err)
		}
	}
	target, err := l.fs.OpenFile(key, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create record for %q: %w", key, err)
	}
	if _, err = io.Copy(target, source); err != nil {
		_ = target.Close()
		return fmt.Errorf("write record for %q: %w", key, err)
	}
	return target.Close()
}

func (l *localFS) Delete(_ context.Context, key string) error {
	if err := l.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

func (l *localFS) Keys(_ context.Context) ([]string, error) {
	const root = "."
	var res []string
	e := afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root || info.IsDir() {
			return nil
		}
		res = append(res, filepath.ToSlash(path))
		return nil
	})
	if e != nil {
		return nil, e
	}
	return res, nil
}

func (l *localFS) Clear(_ context.Context) error {
	entries, err := afero.ReadDir(l.fs, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := l.fs.RemoveAll(entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (l *localFS) String() string {
	return describe("localfs", l.fs)
}

func describe(name string, fs afero.Fs) string {
	switch fs := fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return name
		}
		return name + "@" + pp
	default:
		return name
	}
}

// Files are first written to a staging area, then renamed into place, so concurrent readers never
// observe a partially written block.
const stageName = ".put-stage"

func maybeInvalidKey(key string) error {
	pathComponents := strings.Split(strings.TrimLeft(filepath.ToSlash(key), "/"), "/")
	if pathComponents[0] == stageName {
		return fmt.Errorf("key %q conflicts with put staging area name %q: %w", key, stageName, status.ErrInvalidResource)
	}
	return nil
}

func filterInvalidKeys(ks []string) []string {
	filtered := ks[:0]
	for _, key := range ks {
		if err := maybeInvalidKey(key); err == nil {
			filtered = append(filtered, key)
		}
	}
	return filtered
}

// NewAtomic creates a local file system store with atomic writes.
//
// It requires a file system on which Rename is atomic.
func NewAtomic(fs afero.Fs) (storage.Store, error) {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), DefaultPath)
	}
	if err := fs.MkdirAll(stageName, 0700); err != nil {
		return nil, fmt.Errorf("ensuring put staging directory %q: %w", stageName, err)
	}
	return &localFSAtomic{
		storeImpl: localFS{fs: fs},
	}, nil
}

type localFSAtomic struct {
	storeImpl localFS
}

func (l *localFSAtomic) Has(ctx context.Context, key string) (bool, error) {
	if err := maybeInvalidKey(key); err != nil {
		return false, err
	}
	return l.storeImpl.Has(ctx, key)
}

func (l *localFSAtomic) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := maybeInvalidKey(key); err != nil {
		return nil, err
	}
	return l.storeImpl.Get(ctx, key)
}

func (l *localFSAtomic) Delete(ctx context.Context, key string) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	return l.storeImpl.Delete(ctx, key)
}

func (l *localFSAtomic) Keys(ctx context.Context) ([]string, error) {
	ks, err := l.storeImpl.Keys(ctx)
	if err != nil {
		return ks, err
	}
	return filterInvalidKeys(ks), nil
}

func (l *localFSAtomic) Clear(ctx context.Context) error {
	if err := l.storeImpl.Clear(ctx); err != nil {
		return err
	}
	return l.storeImpl.fs.MkdirAll(stageName, 0700)
}

func (l *localFSAtomic) Put(ctx context.Context, key string, source io.Reader) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	stageFile, err := afero.TempFile(l.storeImpl.fs, stageName, "put-")
	if err != nil {
		return fmt.Errorf("staging %q: %w", key, err)
	}
	stageKey := stageFile.Name()
	if _, err = io.Copy(stageFile, source); err != nil {
		_ = stageFile.Close()
		_ = l.storeImpl.fs.Remove(stageKey)
		return fmt.Errorf("write record for %q: %w", key, err)
	}
	if err = stageFile.Close(); err != nil {
		return err
	}

	// Rename() doesn't create directories
	if dir := filepath.Dir(key); dir != "" {
		if err := l.storeImpl.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %w", key, err)
		}
	}
	return l.storeImpl.fs.Rename(stageKey, key)
}

func (l *localFSAtomic) String() string {
	return describe("localfs-atomic", l.storeImpl.fs)
}
