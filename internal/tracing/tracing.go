// Copyright © 2018 One Concern

// Package tracing sets up a jaeger tracer reporting to an agent
package tracing

import (
	"io"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerzap "github.com/uber/jaeger-client-go/log/zap"
	jprom "github.com/uber/jaeger-lib/metrics/prometheus"
	"go.uber.org/zap"
)

// DefaultAgent is the address of the local jaeger agent
const DefaultAgent = "localhost:6831"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init creates a tracer sampling every span, which reports to the jaeger agent at agentHostPort.
// Tracer metrics are registered on reg, or on the default prometheus registry when nil.
func Init(service string, reg prometheus.Registerer, l *zap.Logger, agentHostPort string) (opentracing.Tracer, io.Closer, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if agentHostPort == "" {
		agentHostPort = DefaultAgent
	}
	var factoryOpts []jprom.Option
	if reg != nil {
		factoryOpts = append(factoryOpts, jprom.WithRegisterer(reg))
	}

	cfg := jaegercfg.Configuration{
		ServiceName: service,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			BufferFlushInterval: time.Second,
			LocalAgentHostPort:  agentHostPort,
		},
	}
	tracer, closer, err := cfg.NewTracer(
		jaegercfg.Logger(jaegerzap.NewLogger(l)),
		jaegercfg.Metrics(jprom.New(factoryOpts...)),
	)
	if err != nil {
		return nil, nil, err
	}
	l.Debug("tracing to jaeger agent", zap.String("agent", agentHostPort), zap.String("service", service))
	return tracer, closer, nil
}

// InitGlobal installs the tracer as the global tracer. When the tracer cannot be created, it falls
// back to the noop tracer and logs the error.
func InitGlobal(service string, l *zap.Logger, agentHostPort string) io.Closer {
	if l == nil {
		l = zap.NewNop()
	}
	tr, closer, err := Init(service, nil, l, agentHostPort)
	if err != nil {
		l.Info("failed to initialize tracing, falling back to noop tracer", zap.Error(err))
		opentracing.SetGlobalTracer(opentracing.NoopTracer{})
		return nopCloser{}
	}
	opentracing.SetGlobalTracer(tr)
	return closer
}
