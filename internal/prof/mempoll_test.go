// Copyright © 2018 One Concern

package prof

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemPoll(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zap.DebugLevel)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	MemPoll(ctx, MemPollParams{
		Poll:       time.Millisecond,
		LogEvery:   5 * time.Millisecond,
		ProfileDir: dir,
		Logger:     zap.New(core),
	})

	require.Eventually(t, func() bool {
		return logs.FilterMessage("mempoll").Len() > 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.NotZero(t, logs.FilterMessage("grew heap").Len())

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "eris-heap-0mib.prof"))
		return err == nil
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	// let the poller observe the cancellation
	time.Sleep(20 * time.Millisecond)
}

func TestWriteHeapProfileKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.prof")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o600))
	require.NoError(t, WriteHeapProfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(content))
}
