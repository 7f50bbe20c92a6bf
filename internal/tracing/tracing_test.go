// Copyright © 2018 One Concern

package tracing

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInit(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr, closer, err := Init("eris-test", reg, zaptest.NewLogger(t), "127.0.0.1:6831")
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	span := tr.StartSpan("encode")
	span.SetTag("blocks", 3)
	span.Finish()

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, family := range families {
		if strings.HasPrefix(family.GetName(), "jaeger_tracer_") {
			found = true
		}
	}
	assert.True(t, found, "expected tracer metrics on the registry")
}

func TestInitDefaultAgent(t *testing.T) {
	tr, closer, err := Init("eris-test", prometheus.NewRegistry(), nil, "")
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.NoError(t, closer.Close())
}
