// Copyright © 2018 One Concern

package gateway

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// N2RPrefix is the URN form of a block reference, as accepted by /uri-res/N2R
const N2RPrefix = "urn:blake2b:"

const contentType = "application/octet-stream"

// Gateway is an http.Handler serving a block store
type Gateway struct {
	store    eris.BlockStore
	router   *mux.Router
	handler  http.Handler
	reg      *prometheus.Registry
	m        *metrics
	tr       opentracing.Tracer
	limiter  *rate.Limiter
	readOnly bool
	l        *zap.Logger
}

// New gateway over a block store
func New(store eris.BlockStore, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		store: store,
		reg:   prometheus.NewRegistry(),
		l:     zap.NewNop(),
	}
	for _, apply := range opts {
		apply(g)
	}

	m, err := newMetrics(g.reg)
	if err != nil {
		return nil, err
	}
	g.m = m

	r := mux.NewRouter()
	r.HandleFunc("/blocks/{ref}", g.handleGetBlock).Methods(http.MethodGet, http.MethodHead).Name("get_block")
	r.HandleFunc("/blocks/{ref}", g.handlePutBlock).Methods(http.MethodPut).Name("put_block")
	r.HandleFunc("/uri-res/N2R", g.handleN2R).Methods(http.MethodGet).Name("n2r")
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet).Name("healthz")
	r.Handle("/metrics", promhttp.HandlerFor(g.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet).Name("metrics")
	r.Use(g.requestID, g.accessLog, g.rateLimit)
	g.router = r
	g.handler = g.tracing(r)
	return g, nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "ok\n")
}

func (g *Gateway) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	ref, err := eris.ParseReference(mux.Vars(r)["ref"])
	if err != nil {
		g.fail(w, r, http.StatusBadRequest, err)
		return
	}
	g.serveBlock(w, r, ref)
}

func (g *Gateway) handleN2R(w http.ResponseWriter, r *http.Request) {
	urn, err := queryURN(r)
	if err != nil {
		g.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if !strings.HasPrefix(urn, N2RPrefix) {
		g.fail(w, r, http.StatusBadRequest, errors.New("expected a "+N2RPrefix+" urn"))
		return
	}
	ref, err := eris.ParseReference(strings.TrimPrefix(urn, N2RPrefix))
	if err != nil {
		g.fail(w, r, http.StatusBadRequest, err)
		return
	}
	g.serveBlock(w, r, ref)
}

// queryURN reads the URN passed as the raw query string, e.g. /uri-res/N2R?urn:blake2b:xyz
func queryURN(r *http.Request) (string, error) {
	raw := r.URL.RawQuery
	if raw == "" {
		return "", errors.New("missing urn")
	}
	return raw, nil
}

func (g *Gateway) serveBlock(w http.ResponseWriter, r *http.Request, ref eris.Reference) {
	block, err := g.store.Get(r.Context(), ref)
	switch {
	case errors.Is(err, status.ErrNotFound):
		g.fail(w, r, http.StatusNotFound, err)
		return
	case err != nil:
		g.fail(w, r, http.StatusInternalServerError, err)
		return
	case block == nil:
		g.fail(w, r, http.StatusNotFound, status.ErrNotFound.WrapMessage(ref.String()))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(block)))
	// blocks are immutable
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", `"`+ref.String()+`"`)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(block)
	}
}

func (g *Gateway) handlePutBlock(w http.ResponseWriter, r *http.Request) {
	if g.readOnly {
		g.fail(w, r, http.StatusMethodNotAllowed, status.ErrNotSupported.WrapMessage("read-only gateway"))
		return
	}
	ref, err := eris.ParseReference(mux.Vars(r)["ref"])
	if err != nil {
		g.fail(w, r, http.StatusBadRequest, err)
		return
	}

	block, err := io.ReadAll(http.MaxBytesReader(w, r.Body, storage.MaxBlockSize))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			g.fail(w, r, http.StatusRequestEntityTooLarge, status.ErrObjectTooBig.Wrap(err))
			return
		}
		g.fail(w, r, http.StatusBadRequest, err)
		return
	}
	if len(block) != eris.BlockSize1KiB && len(block) != eris.BlockSize32KiB {
		g.fail(w, r, http.StatusBadRequest, errors.New("invalid block size "+strconv.Itoa(len(block))))
		return
	}
	if !eris.VerifyBlock(ref, block) {
		g.fail(w, r, http.StatusBadRequest, status.ErrCorrupted.WrapMessage(ref.String()))
		return
	}

	if err := g.store.Put(r.Context(), ref, block); err != nil {
		g.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Location", "/blocks/"+ref.String())
	w.WriteHeader(http.StatusCreated)
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, code int, err error) {
	if code >= http.StatusInternalServerError {
		g.l.Error("request failed", zap.String("path", r.URL.Path), zap.String("request_id", w.Header().Get(requestIDHeader)), zap.Error(err))
	}
	http.Error(w, err.Error(), code)
}
