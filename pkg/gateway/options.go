// Copyright © 2018 One Concern

package gateway

import (
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option configures the gateway
type Option func(*Gateway)

// Logger for access logs and errors
func Logger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.l = l
		}
	}
}

// Registry collects the request metrics and is exposed on /metrics
func Registry(reg *prometheus.Registry) Option {
	return func(g *Gateway) {
		if reg != nil {
			g.reg = reg
		}
	}
}

// Tracer starts a span for every request
func Tracer(tr opentracing.Tracer) Option {
	return func(g *Gateway) {
		g.tr = tr
	}
}

// RateLimit allows rps requests per second on average, with bursts. Zero disables limiting.
func RateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// ReadOnly rejects block uploads
func ReadOnly(enabled bool) Option {
	return func(g *Gateway) {
		g.readOnly = enabled
	}
}
