// Copyright © 2018 One Concern

package storage_test

import (
	"testing"

	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/memory"
	"github.com/oneconcern/eris/pkg/storage/storetest"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestInstrumentedStore(t *testing.T) {
	tracer := mocktracer.New()

	storetest.TestStoreCompliance(t, func(tb testing.TB) storage.Store {
		return storage.Instrument(tracer, zaptest.NewLogger(tb), memory.New())
	})

	spans := tracer.FinishedSpans()
	assert.NotEmpty(t, spans)

	var names = make(map[string]bool)
	for _, span := range spans {
		names[span.OperationName] = true
	}
	assert.True(t, names["storage.memory.Put"])
	assert.True(t, names["storage.memory.Get"])

	var failed bool
	for _, span := range spans {
		if span.OperationName == "storage.memory.Get" && span.Tag("error") == true {
			failed = true
		}
	}
	assert.True(t, failed, "failed calls are tagged")
}
