// Copyright © 2018 One Concern

package gateway

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/opentracing-contrib/go-stdlib/nethttp"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
		return route.GetName()
	}
	return "unknown"
}

// requestID echoes the caller's request id, or assigns a new one
func (g *Gateway) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		route := routeName(r)
		g.m.observe(route, r.Method, m.Code, m.Duration)
		g.l.Info("access",
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Duration("duration", m.Duration),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

func (g *Gateway) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.limiter != nil && !g.limiter.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) tracing(next http.Handler) http.Handler {
	if g.tr == nil {
		return next
	}
	return nethttp.Middleware(g.tr, next, nethttp.OperationNameFunc(func(r *http.Request) string {
		return "gateway " + r.Method + " " + r.URL.Path
	}))
}
