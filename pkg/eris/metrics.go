// Copyright © 2018 One Concern

package eris

import (
	"github.com/oneconcern/eris/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opEncode = "encode"
	opDecode = "decode"
)

// Metrics about encoded and decoded blocks.
//
// A nil *Metrics collects nothing.
type Metrics struct {
	blocks       *prometheus.CounterVec
	bytes        *prometheus.CounterVec
	capabilities *prometheus.CounterVec
	corrupted    prometheus.Counter
}

// NewMetrics registers the collectors on a prometheus registerer.
//
// Registering twice on the same registerer reuses the collectors already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eris",
			Name:      "blocks_total",
			Help:      "number of blocks, by operation and kind (leaf or node)",
		}, []string{"operation", "kind"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eris",
			Name:      "block_bytes_total",
			Help:      "cumulated size of blocks, by operation",
		}, []string{"operation"}),
		capabilities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eris",
			Name:      "capabilities_total",
			Help:      "number of read capabilities produced or consumed, by operation",
		}, []string{"operation"}),
		corrupted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eris",
			Name:      "corrupted_blocks_total",
			Help:      "number of fetched blocks which did not match their reference",
		}),
	}

	var err error
	if m.blocks, err = register(reg, m.blocks); err != nil {
		return nil, err
	}
	if m.bytes, err = register(reg, m.bytes); err != nil {
		return nil, err
	}
	if m.capabilities, err = register(reg, m.capabilities); err != nil {
		return nil, err
	}
	if m.corrupted, err = register(reg, m.corrupted); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func blockKind(level int) string {
	if level == 0 {
		return "leaf"
	}
	return "node"
}

func (m *Metrics) block(operation string, level, size int) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(operation, blockKind(level)).Inc()
	m.bytes.WithLabelValues(operation).Add(float64(size))
}

func (m *Metrics) capability(operation string) {
	if m == nil {
		return
	}
	m.capabilities.WithLabelValues(operation).Inc()
}

func (m *Metrics) corruptedBlock() {
	if m == nil {
		return
	}
	m.corrupted.Inc()
}
