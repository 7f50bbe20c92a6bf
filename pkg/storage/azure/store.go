// Copyright © 2018 One Concern

// Package azure implements an object store on top of Azure blob storage
package azure

import (
	"bytes"
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var _ storage.Store = &azureStore{}

// Option configures the azure store
type Option func(*azureStore)

// Logger specifies a logger for this store
func Logger(logger *zap.Logger) Option {
	return func(a *azureStore) {
		if logger != nil {
			a.l = logger
		}
	}
}

// Prefix stores all blobs under some name prefix in the container
func Prefix(prefix string) Option {
	return func(a *azureStore) {
		a.prefix = prefix
	}
}

// CreateContainer creates the container if it does not exist yet
func CreateContainer(enabled bool) Option {
	return func(a *azureStore) {
		a.create = enabled
	}
}

type azureStore struct {
	client    *azblob.Client
	container string
	prefix    string
	create    bool
	l         *zap.Logger
}

// New builds a store on an azure blob container, from a storage account connection string
func New(ctx context.Context, connectionString, container string, opts ...Option) (storage.Store, error) {
	if container == "" {
		return nil, status.ErrInvalidResource.WrapMessage("azure container name is required")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, status.ErrInvalidResource.Wrap(err)
	}
	a := &azureStore{
		client:    client,
		container: container,
		l:         zap.NewNop(),
	}
	for _, apply := range opts {
		apply(a)
	}
	a.l = a.l.With(zap.String("container", container))

	if a.create {
		_, err = client.CreateContainer(ctx, container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, toSentinelErrors(err)
		}
	}
	return a, nil
}

func (a *azureStore) String() string {
	return "azure://" + a.container + "/" + a.prefix
}

func (a *azureStore) Has(ctx context.Context, key string) (bool, error) {
	blob := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(a.prefix + key)
	_, err := blob.GetProperties(ctx, nil)
	if err != nil {
		err = toSentinelErrors(err)
		if errors.Is(err, status.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *azureStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, a.prefix+key, nil)
	if err != nil {
		return nil, toSentinelErrors(err)
	}
	return resp.Body, nil
}

func (a *azureStore) Put(ctx context.Context, key string, rdr io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rdr, storage.MaxBlockSize+1)); err != nil {
		return err
	}
	if buf.Len() > storage.MaxBlockSize {
		return status.ErrObjectTooBig.WrapMessage(key)
	}
	_, err := a.client.UploadBuffer(ctx, a.container, a.prefix+key, buf.Bytes(), nil)
	return toSentinelErrors(err)
}

func (a *azureStore) Delete(ctx context.Context, key string) error {
	_, err := a.client.DeleteBlob(ctx, a.container, a.prefix+key, nil)
	err = toSentinelErrors(err)
	if errors.Is(err, status.ErrNotFound) {
		return nil
	}
	return err
}

func (a *azureStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(a.prefix),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, toSentinelErrors(err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			keys = append(keys, (*item.Name)[len(a.prefix):])
		}
	}
	return keys, nil
}

func (a *azureStore) Clear(ctx context.Context) error {
	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	a.l.Info("clearing container", zap.Int("blobs", len(keys)))
	var merr error
	for _, key := range keys {
		merr = multierr.Append(merr, a.Delete(ctx, key))
	}
	return merr
}
