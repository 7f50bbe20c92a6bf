// Copyright © 2018 One Concern

package httpstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/gateway"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/memory"
	"github.com/oneconcern/eris/pkg/storage/status"
	"github.com/oneconcern/eris/pkg/storage/storetest"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newGateway(t testing.TB, opts ...gateway.Option) string {
	g, err := gateway.New(storage.NewBlocks(memory.New()), append(opts, gateway.Logger(zaptest.NewLogger(t)))...)
	require.NoError(t, err)
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHTTPStore(t *testing.T) {
	storetest.TestBlockStoreCompliance(t, func(t testing.TB) eris.BlockStore {
		s, err := New(newGateway(t), Logger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		return s
	})
}

func TestNewInvalidURL(t *testing.T) {
	_, err := New("ftp://example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrInvalidResource))
}

func TestReadOnlyGateway(t *testing.T) {
	s, err := New(newGateway(t, gateway.ReadOnly(true)))
	require.NoError(t, err)

	block, pair := eris.EncryptBlock(make([]byte, eris.BlockSize1KiB), eris.Secret{})
	err = s.Put(context.Background(), pair.Reference, block)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotSupported))
}

func TestCorruptedPut(t *testing.T) {
	s, err := New(newGateway(t))
	require.NoError(t, err)

	block, pair := eris.EncryptBlock(make([]byte, eris.BlockSize1KiB), eris.Secret{})
	block[0] ^= 0xff
	err = s.Put(context.Background(), pair.Reference, block)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrCorrupted))
}

func TestTracedClient(t *testing.T) {
	tr := mocktracer.New()
	s, err := New(newGateway(t, gateway.Tracer(tr)), Tracer(tr), Client(&http.Client{}))
	require.NoError(t, err)

	ctx := context.Background()
	c, err := eris.Encode(ctx, eris.Text("traced"), s, eris.WithBlockSize(eris.BlockSize1KiB))
	require.NoError(t, err)
	text, err := eris.DecodeToString(ctx, c.String(), s)
	require.NoError(t, err)
	assert.Equal(t, "traced", text)
	assert.NotEmpty(t, tr.FinishedSpans())
}
