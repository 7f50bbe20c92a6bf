// Copyright © 2018 One Concern

// Package httpstore is a block store backed by a remote block gateway
package httpstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"github.com/opentracing-contrib/go-stdlib/nethttp"
	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

var (
	_ eris.BlockStore    = &Store{}
	_ storage.BlockHaser = &Store{}
)

// Option configures the client
type Option func(*Store)

// Client to use for requests
func Client(client *http.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

// Logger for this store
func Logger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.l = l
		}
	}
}

// Tracer propagates spans to the gateway
func Tracer(tr opentracing.Tracer) Option {
	return func(s *Store) {
		s.tr = tr
	}
}

// Store calls the block routes of a gateway
type Store struct {
	base   *url.URL
	client *http.Client
	tr     opentracing.Tracer
	l      *zap.Logger
}

// New client for the gateway at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) (*Store, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, status.ErrInvalidResource.Wrap(err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, status.ErrInvalidResource.WrapMessage("gateway url must be http or https: " + baseURL)
	}
	s := &Store{
		base:   base,
		client: &http.Client{Timeout: time.Minute},
		l:      zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	if s.tr != nil {
		transport := s.client.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		traced := *s.client
		traced.Transport = &nethttp.Transport{RoundTripper: transport}
		s.client = &traced
	}
	return s, nil
}

func (s *Store) String() string {
	return s.base.String()
}

func (s *Store) blockURL(ref eris.Reference) string {
	return s.base.String() + "/blocks/" + ref.String()
}

func (s *Store) do(req *http.Request) (*http.Response, error) {
	if s.tr == nil {
		return s.client.Do(req)
	}
	req, ht := nethttp.TraceRequest(s.tr, req)
	defer ht.Finish()
	return s.client.Do(req)
}

func responseError(resp *http.Response, ref eris.Reference) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := ref.String() + ": " + resp.Status + ": " + strings.TrimSpace(string(msg))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return status.ErrNotFound.WrapMessage(detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return status.ErrForbidden.WrapMessage(detail)
	case http.StatusMethodNotAllowed:
		return status.ErrNotSupported.WrapMessage(detail)
	case http.StatusRequestEntityTooLarge:
		return status.ErrObjectTooBig.WrapMessage(detail)
	case http.StatusBadRequest:
		return status.ErrCorrupted.WrapMessage(detail)
	default:
		return status.ErrStorageAPI.WrapMessage(detail)
	}
}

// Get a block from the gateway
func (s *Store) Get(ctx context.Context, ref eris.Reference) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.blockURL(ref), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.do(req)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp, ref)
	}
	block, err := io.ReadAll(io.LimitReader(resp.Body, storage.MaxBlockSize+1))
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	if len(block) > storage.MaxBlockSize {
		return nil, status.ErrObjectTooBig.WrapMessage(ref.String())
	}
	return block, nil
}

// Put a block on the gateway
func (s *Store) Put(ctx context.Context, ref eris.Reference, block []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.blockURL(ref), bytes.NewReader(block))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := s.do(req)
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return responseError(resp, ref)
	}
	s.l.Debug("put block", zap.Stringer("ref", ref), zap.Int("size", len(block)))
	return nil
}

// Has tells if the gateway serves a block
func (s *Store) Has(ctx context.Context, ref eris.Reference) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.blockURL(ref), nil)
	if err != nil {
		return false, err
	}
	resp, err := s.do(req)
	if err != nil {
		return false, status.ErrStorageAPI.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(resp, ref)
	}
}
