// Copyright © 2018 One Concern

// Package gcs implements an object store on top of Google Cloud Storage
package gcs

import (
	"context"
	"io"

	gcsStorage "cloud.google.com/go/storage"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var _ storage.Store = &gcs{}

type gcs struct {
	client         *gcsStorage.Client
	readOnlyClient *gcsStorage.Client
	bucket         string
	prefix         string
	clientOpts     []option.ClientOption
	l              *zap.Logger
}

// New builds a store on a GCS bucket
func New(ctx context.Context, bucket string, opts ...Option) (storage.Store, error) {
	googleStore := &gcs{
		bucket: bucket,
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(googleStore)
	}
	if bucket == "" {
		return nil, status.ErrInvalidResource.WrapMessage("gcs bucket name is required")
	}

	var err error
	googleStore.readOnlyClient, err = gcsStorage.NewClient(ctx, append(googleStore.clientOpts, option.WithScopes(gcsStorage.ScopeReadOnly))...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	googleStore.client, err = gcsStorage.NewClient(ctx, append(googleStore.clientOpts, option.WithScopes(gcsStorage.ScopeFullControl))...)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	googleStore.l = googleStore.l.With(zap.String("bucket", bucket))
	return googleStore, nil
}

func (g *gcs) String() string {
	return "gcs://" + g.bucket + "/" + g.prefix
}

func (g *gcs) Has(ctx context.Context, objectName string) (bool, error) {
	_, err := g.readOnlyClient.Bucket(g.bucket).Object(g.prefix + objectName).Attrs(ctx)
	if err != nil {
		err = toSentinelErrors(err)
		if errors.Is(err, status.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *gcs) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	objectReader, err := g.readOnlyClient.Bucket(g.bucket).Object(g.prefix + objectName).NewReader(ctx)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return objectReader, nil
}

// Put writes an object. Blocks are immutable, so an existing object is left untouched.
func (g *gcs) Put(ctx context.Context, objectName string, reader io.Reader) error {
	writer := g.client.Bucket(g.bucket).Object(g.prefix + objectName).If(gcsStorage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	_, err := io.Copy(writer, reader)
	if err != nil {
		_ = writer.Close()
		return toSentinelErrors(err)
	}
	err = toSentinelErrors(writer.Close())
	if errors.Is(err, status.ErrExists) {
		g.l.Debug("object already exists", zap.String("object", objectName))
		return nil
	}
	return err
}

func (g *gcs) Delete(ctx context.Context, objectName string) error {
	err := toSentinelErrors(g.client.Bucket(g.bucket).Object(g.prefix + objectName).Delete(ctx))
	if errors.Is(err, status.ErrNotFound) {
		return nil
	}
	return err
}

func (g *gcs) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	objectsIterator := g.readOnlyClient.Bucket(g.bucket).Objects(ctx, &gcsStorage.Query{Prefix: g.prefix})
	for {
		attrs, err := objectsIterator.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, toSentinelErrors(err)
		}
		keys = append(keys, attrs.Name[len(g.prefix):])
	}
	return keys, nil
}

func (g *gcs) Clear(ctx context.Context) error {
	keys, err := g.Keys(ctx)
	if err != nil {
		return err
	}
	g.l.Info("clearing bucket", zap.Int("objects", len(keys)))
	var merr error
	for _, key := range keys {
		merr = multierr.Append(merr, g.Delete(ctx, key))
	}
	return merr
}
