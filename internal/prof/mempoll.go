// Copyright © 2018 One Concern

// Package prof watches memory usage while encoding or decoding large content
package prof

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const mib = 1024 * 1024

// MemPollParams configures the memory poller
type MemPollParams struct {
	// Poll interval, defaults to 50ms
	Poll time.Duration
	// LogEvery logs memory stats periodically. Zero only logs when the heap grows.
	LogEvery time.Duration
	// ProfileDir receives a heap profile when the heap first exceeds ProfileAboveMiB
	ProfileDir      string
	ProfileAboveMiB uint64
	Logger          *zap.Logger
}

func (p MemPollParams) withDefaults() MemPollParams {
	if p.Poll == 0 {
		p.Poll = 50 * time.Millisecond
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return p
}

// MemPoll logs memory usage until the context is done
func MemPoll(ctx context.Context, params MemPollParams) {
	params = params.withDefaults()
	go memPoll(ctx, params)
}

func memPoll(ctx context.Context, params MemPollParams) {
	ticker := time.NewTicker(params.Poll)
	defer ticker.Stop()

	mstats := new(runtime.MemStats)
	var maxHeap uint64
	var sinceLog time.Duration
	profiled := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		runtime.ReadMemStats(mstats)
		sinceLog += params.Poll
		if params.LogEvery != 0 && sinceLog >= params.LogEvery {
			params.Logger.Info("mempoll",
				zap.Uint64("heap_alloc_mib", mstats.Alloc/mib),
				zap.Uint64("heap_sys_mib", mstats.HeapSys/mib),
				zap.Int("goroutines", runtime.NumGoroutine()),
			)
			sinceLog = 0
		}
		if mstats.HeapSys > maxHeap {
			maxHeap = mstats.HeapSys
			params.Logger.Debug("grew heap",
				zap.Uint64("heap_alloc_mib", mstats.Alloc/mib),
				zap.Uint64("heap_sys_mib", mstats.HeapSys/mib),
			)
		}
		if !profiled && params.ProfileDir != "" && mstats.HeapSys/mib >= params.ProfileAboveMiB {
			profiled = true
			path := filepath.Join(params.ProfileDir, "eris-heap-"+strconv.FormatUint(params.ProfileAboveMiB, 10)+"mib.prof")
			if err := WriteHeapProfile(path); err != nil {
				params.Logger.Error("memory profiling error", zap.Error(err))
			}
		}
	}
}

// WriteHeapProfile writes a heap profile to path, unless the file already exists
func WriteHeapProfile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if os.IsExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := pprof.Lookup("heap").WriteTo(f, 0); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
