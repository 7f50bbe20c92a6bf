// Copyright © 2018 One Concern

package config

import (
	"context"
	"io"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/azure"
	"github.com/oneconcern/eris/pkg/storage/bdgr"
	"github.com/oneconcern/eris/pkg/storage/gcs"
	"github.com/oneconcern/eris/pkg/storage/httpstore"
	"github.com/oneconcern/eris/pkg/storage/ipfs"
	"github.com/oneconcern/eris/pkg/storage/localfs"
	"github.com/oneconcern/eris/pkg/storage/memory"
	"github.com/oneconcern/eris/pkg/storage/postgres"
	"github.com/oneconcern/eris/pkg/storage/sthree"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Closers releases the resources held by opened stores
type Closers []io.Closer

// Close all, reporting every error
func (c Closers) Close() error {
	var merr error
	for i := len(c) - 1; i >= 0; i-- {
		merr = multierr.Append(merr, c[i].Close())
	}
	return merr
}

// OpenedStore is the block store built from the configuration
type OpenedStore struct {
	eris.BlockStore
	// Primary is the main store, before mirroring
	Primary eris.BlockStore
	// Dedup is set when the dedup filter is enabled and the primary store supports it
	Dedup   *storage.Dedup
	closers Closers
}

// Close the underlying stores
func (o *OpenedStore) Close() error {
	return o.closers.Close()
}

// Has tells if the primary store holds a block, when it supports it
func (o *OpenedStore) Has(ctx context.Context, ref eris.Reference) (bool, error) {
	haser, ok := o.Primary.(storage.BlockHaser)
	if !ok {
		return false, nil
	}
	return haser.Has(ctx, ref)
}

// OpenStore builds the configured block store, with its mirrors, dedup filter and tracing
func OpenStore(ctx context.Context, cfg Config, l *zap.Logger) (*OpenedStore, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	opened := &OpenedStore{}

	primary, closer, err := openBlockStore(ctx, cfg.Store, cfg.Trace, l)
	if err != nil {
		return nil, err
	}
	opened.closers = appendCloser(opened.closers, closer)
	opened.Primary = primary

	if cfg.Dedup.Enabled {
		if dedupable, ok := primary.(storage.DedupStore); ok {
			opened.Dedup = storage.NewDedup(dedupable, cfg.Dedup.Expected, cfg.Dedup.FalsePositiveRate)
			primary = opened.Dedup
		} else {
			l.Warn("dedup is not supported by this store", zap.String("store", cfg.Store.Type))
		}
	}

	if len(cfg.Mirrors) == 0 {
		opened.BlockStore = primary
		return opened, nil
	}

	units := []storage.MultiStoreUnit{{Store: primary}}
	for _, mirrorCfg := range cfg.Mirrors {
		mirror, closer, err := openBlockStore(ctx, mirrorCfg, cfg.Trace, l)
		if err != nil {
			_ = opened.Close()
			return nil, err
		}
		opened.closers = appendCloser(opened.closers, closer)
		units = append(units, storage.MultiStoreUnit{Store: mirror, TolerateFailure: mirrorCfg.TolerateFailure})
	}
	opened.BlockStore = storage.NewMulti(l, units...)
	return opened, nil
}

func appendCloser(closers Closers, closer io.Closer) Closers {
	if closer == nil {
		return closers
	}
	return append(closers, closer)
}

// openBlockStore opens a backend. Key/value backends are adapted to store blocks.
func openBlockStore(ctx context.Context, cfg StoreConfig, trace bool, l *zap.Logger) (eris.BlockStore, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := l.With(zap.String("store", cfg.Type))

	var (
		kv     storage.Store
		closer io.Closer
		err    error
	)
	switch cfg.Type {
	case StoreIPFS:
		s, err := ipfs.New(cfg.IPFS.Endpoint, ipfs.Offline(cfg.IPFS.Offline), ipfs.Logger(logger))
		return s, nil, err
	case StoreHTTP:
		var opts []httpstore.Option
		opts = append(opts, httpstore.Logger(logger))
		if trace {
			opts = append(opts, httpstore.Tracer(opentracing.GlobalTracer()))
		}
		s, err := httpstore.New(cfg.HTTP.URL, opts...)
		return s, nil, err
	case StoreMemory:
		kv = memory.New()
	case StoreLocal:
		kv, err = localfs.NewAtomic(afero.NewBasePathFs(afero.NewOsFs(), filepath.Clean(cfg.Local.Path)))
	case StoreS3:
		awsConfig := aws.NewConfig().WithRegion(cfg.S3.Region)
		opts := []sthree.Option{sthree.AWSConfig(awsConfig), sthree.Prefix(cfg.Prefix)}
		if cfg.S3.Endpoint != "" {
			opts = append(opts, sthree.Endpoint(cfg.S3.Endpoint))
		}
		kv, err = sthree.New(sthree.Bucket(cfg.S3.Bucket), opts...)
	case StoreGCS:
		kv, err = gcs.New(ctx, cfg.GCS.Bucket, gcs.CredentialsFile(cfg.GCS.Credentials), gcs.Prefix(cfg.Prefix), gcs.Logger(logger))
	case StoreAzure:
		kv, err = azure.New(ctx, cfg.Azure.ConnectionString, cfg.Azure.Container, azure.Prefix(cfg.Prefix), azure.Logger(logger))
	case StoreBadger:
		var s *bdgr.Store
		s, err = bdgr.New(cfg.Badger.Path, bdgr.Logger(logger))
		if err == nil {
			kv, closer = s, s
		}
	case StorePostgres:
		var s *postgres.Store
		s, err = postgres.New(ctx, postgres.Config{ConnectionString: cfg.Postgres.URL, MaxConnections: cfg.Postgres.MaxConnections}, logger)
		if err == nil {
			kv, closer = s, s
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if trace {
		kv = storage.Instrument(opentracing.GlobalTracer(), logger, kv)
	}
	var blockOpts []storage.BlocksOption
	blockOpts = append(blockOpts, storage.BlocksLogger(logger))
	// cloud stores apply their own prefix
	switch cfg.Type {
	case StoreMemory, StoreLocal, StoreBadger, StorePostgres:
		if cfg.Prefix != "" {
			blockOpts = append(blockOpts, storage.BlocksPrefix(cfg.Prefix))
		}
	}
	return storage.NewBlocks(kv, blockOpts...), closer, nil
}
