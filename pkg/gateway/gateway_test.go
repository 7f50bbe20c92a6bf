// Copyright © 2018 One Concern

package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/oneconcern/eris/internal/rand"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	store eris.BlockMap
	g     *Gateway
	ref   eris.Reference
	block []byte
}

func newFixture(t *testing.T, opts ...Option) fixture {
	store := make(eris.BlockMap)
	block, pair := eris.EncryptBlock(rand.Bytes(eris.BlockSize1KiB), eris.Secret{})
	require.NoError(t, store.Put(context.Background(), pair.Reference, block))

	g, err := New(store, append(opts, Logger(zaptest.NewLogger(t)))...)
	require.NoError(t, err)
	return fixture{store: store, g: g, ref: pair.Reference, block: block}
}

func (f fixture) do(method, target string, body []byte) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.g.ServeHTTP(rec, httptest.NewRequest(method, target, rdr))
	return rec
}

func TestGetBlock(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/blocks/"+f.ref.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.block, rec.Body.Bytes())
	assert.Equal(t, contentType, rec.Header().Get("Content-Type"))
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	rec = f.do(http.MethodHead, "/blocks/"+f.ref.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	rec = f.do(http.MethodGet, "/blocks/"+eris.Hash([]byte("missing")).String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/blocks/not-a-reference", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestN2R(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/uri-res/N2R?"+N2RPrefix+f.ref.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.block, rec.Body.Bytes())

	for _, query := range []string{"", "?urn:sha256:" + f.ref.String(), "?" + N2RPrefix + "garbage"} {
		rec = f.do(http.MethodGet, "/uri-res/N2R"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)
	}
}

func TestPutBlock(t *testing.T) {
	f := newFixture(t)
	block, pair := eris.EncryptBlock(rand.Bytes(eris.BlockSize32KiB), eris.Secret{})

	rec := f.do(http.MethodPut, "/blocks/"+pair.Reference.String(), block)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/blocks/"+pair.Reference.String(), rec.Header().Get("Location"))
	assert.Equal(t, block, f.store[pair.Reference])

	t.Run("mismatched reference", func(t *testing.T) {
		rec := f.do(http.MethodPut, "/blocks/"+f.ref.String(), block)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid size", func(t *testing.T) {
		short := block[:100]
		rec := f.do(http.MethodPut, "/blocks/"+eris.Hash(short).String(), short)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too big", func(t *testing.T) {
		big := rand.Bytes(eris.BlockSize32KiB + 1)
		rec := f.do(http.MethodPut, "/blocks/"+eris.Hash(big).String(), big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestReadOnly(t *testing.T) {
	f := newFixture(t, ReadOnly(true))
	rec := f.do(http.MethodPut, "/blocks/"+f.ref.String(), f.block)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, RateLimit(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, f.do(http.MethodGet, "/healthz", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	rec := httptest.NewRecorder()
	f.g.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	_ = f.do(http.MethodGet, "/blocks/"+f.ref.String(), nil)

	rec := f.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `eris_gateway_requests_total{code="200",method="GET",route="get_block"} 1`))
}

func TestOverHTTP(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.g)
	defer srv.Close()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(srv.URL + "/blocks/" + f.ref.String())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, f.block, body)
}
