// Copyright © 2018 One Concern

package eris

import "go.uber.org/zap"

// Option configures encoding and decoding
type Option func(*options)

type options struct {
	blockSize int
	secret    Secret
	l         *zap.Logger
	m         *Metrics
}

func defaultOptions() options {
	return options{
		blockSize: BlockSize32KiB,
		l:         zap.NewNop(),
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// WithBlockSize sets the block size used to encode content: BlockSize1KiB or BlockSize32KiB.
//
// The default is BlockSize32KiB. Decoding always uses the block size of the read capability.
func WithBlockSize(size int) Option {
	return func(o *options) {
		o.blockSize = size
	}
}

// WithConvergenceSecret sets the secret mixed into the derivation of block keys
func WithConvergenceSecret(secret Secret) Option {
	return func(o *options) {
		o.secret = secret
	}
}

// WithLogger injects a logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// WithMetrics enables metrics collection
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.m = m
	}
}
