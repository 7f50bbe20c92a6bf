// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const watchDebounce = 200 * time.Millisecond

// encodeFileFunc encodes a file and returns its URN
type encodeFileFunc func(ctx context.Context, path string) (string, error)

func encodeFile(store eris.BlockPutter, opts []eris.Option) encodeFileFunc {
	return func(ctx context.Context, path string) (string, error) {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer func() { _ = f.Close() }()

		c, err := eris.Encode(ctx, eris.Reader(f), store, opts...)
		if err != nil {
			return "", err
		}
		return c.String(), nil
	}
}

// debouncer delays a call per key until events for that key settle
type debouncer struct {
	delay     time.Duration
	afterFunc func(time.Duration, func()) *time.Timer

	mx      sync.Mutex
	pending map[string]*debounced
	wg      sync.WaitGroup
}

type debounced struct {
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:     delay,
		afterFunc: time.AfterFunc,
		pending:   make(map[string]*debounced),
	}
}

// schedule calls fn(key) once no other event for key has been scheduled during the delay
func (d *debouncer) schedule(key string, fn func(string)) {
	d.mx.Lock()
	defer d.mx.Unlock()

	if entry, found := d.pending[key]; found && entry.timer.Stop() {
		entry.timer.Reset(d.delay)
		return
	}
	d.wg.Add(1)
	entry := &debounced{}
	entry.timer = d.afterFunc(d.delay, func() { d.fire(key, entry, fn) })
	d.pending[key] = entry
}

func (d *debouncer) fire(key string, entry *debounced, fn func(string)) {
	defer d.wg.Done()

	d.mx.Lock()
	// a later event may have scheduled another timer for this key
	if d.pending[key] == entry {
		delete(d.pending, key)
	}
	d.mx.Unlock()

	fn(key)
}

// stop cancels pending calls and waits for those already running
func (d *debouncer) stop() {
	d.mx.Lock()
	for key, entry := range d.pending {
		if entry.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, key)
	}
	d.mx.Unlock()
	d.wg.Wait()
}

// watchDir encodes regular files of dir as they are created or written, and prints one URN per file.
// Writes in quick succession are debounced. It returns when the context is done.
func watchDir(ctx context.Context, dir string, encode encodeFileFunc, out io.Writer, l *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	l.Info("watching directory", zap.String("dir", dir))

	var mx sync.Mutex
	debounce := newDebouncer(watchDebounce)
	defer debounce.stop()

	process := func(path string) {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		urn, err := encode(ctx, path)
		if err != nil {
			l.Error("could not encode file", zap.String("path", path), zap.Error(err))
			return
		}
		l.Debug("encoded file", zap.String("path", path), zap.Int64("bytes", info.Size()))

		mx.Lock()
		_, _ = fmt.Fprintf(out, "%s\t%s\n", urn, path)
		mx.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			debounce.schedule(filepath.Clean(event.Name), process)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.Warn("watch error", zap.Error(err))
		}
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Encode files as they are written to a directory",
	Long: `Watch a directory and encode every file created or written there into the configured store.

One line is printed per encoded file: the URN and the path of the file.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		cfg, l, ok := mustConfig(cmd)
		if !ok {
			return
		}
		opts, err := cfg.EncodeOptions(l, nil)
		if err != nil {
			wrapFatalln("encoding options", err)
			return
		}
		store, ok := openStore(ctx, cfg, l)
		if !ok {
			return
		}
		defer func() { _ = store.Close() }()

		if err := watchDir(ctx, args[0], encodeFile(store, opts), cmd.OutOrStdout(), l); err != nil {
			wrapFatalln("watch", err)
		}
	},
}

func init() {
	addEncodingFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}
