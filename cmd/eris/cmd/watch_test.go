// Copyright © 2018 One Concern

package cmd

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firedTimers replaces time.AfterFunc with timers that report as already fired,
// and keeps their callbacks so the test decides when they run.
type firedTimers struct {
	callbacks []func()
}

func (f *firedTimers) afterFunc(delay time.Duration, fn func()) *time.Timer {
	f.callbacks = append(f.callbacks, fn)
	timer := time.AfterFunc(delay, fn)
	timer.Stop()
	return timer
}

func TestDebouncerRescheduleAfterFire(t *testing.T) {
	var timers firedTimers
	d := newDebouncer(time.Hour)
	d.afterFunc = timers.afterFunc

	var processed []string
	process := func(key string) { processed = append(processed, key) }

	d.schedule("file", process)
	// the first timer can no longer be stopped: a second one takes over
	d.schedule("file", process)
	require.Len(t, timers.callbacks, 2)

	timers.callbacks[0]()
	d.mx.Lock()
	_, tracked := d.pending["file"]
	d.mx.Unlock()
	assert.True(t, tracked, "the timer scheduled last must stay tracked")

	timers.callbacks[1]()
	assert.Empty(t, d.pending)
	assert.Equal(t, []string{"file", "file"}, processed)

	d.stop()
}

func TestDebouncerCoalesces(t *testing.T) {
	var (
		mx        sync.Mutex
		processed []string
	)
	d := newDebouncer(50 * time.Millisecond)
	for i := 0; i < 10; i++ {
		d.schedule("file", func(key string) {
			mx.Lock()
			processed = append(processed, key)
			mx.Unlock()
		})
	}

	require.Eventually(t, func() bool {
		mx.Lock()
		defer mx.Unlock()
		return len(processed) == 1
	}, 5*time.Second, 10*time.Millisecond)
	d.stop()
	assert.Equal(t, []string{"file"}, processed)
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := newDebouncer(time.Hour)
	called := false
	d.schedule("file", func(string) { called = true })
	d.schedule("other", func(string) { called = true })

	d.stop()
	assert.False(t, called)
	assert.Empty(t, d.pending)
}
