// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/oneconcern/eris/internal/prof"
	"github.com/oneconcern/eris/internal/tracing"
	"github.com/oneconcern/eris/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eris",
	Short: "eris encodes content into encrypted blocks",
	Long: `eris encodes content into uniformly sized encrypted blocks, and decodes it back.

Content is split into blocks of 1KiB or 32KiB, padded, encrypted with a key derived from
the block itself and stored under the hash of the ciphertext. Blocks are arranged in a tree,
and the content is retrieved with a short read capability: an urn:erisx2: URN.

Blocks are kept in a configurable store: memory, local files, S3, GCS, Azure, badger,
postgres, IPFS or a remote eris gateway.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if erisFlags.root.cpuProf {
			f, err := os.Create("cpu.prof")
			if err != nil {
				wrapFatalln("create cpu profile", err)
				return
			}
			_ = pprof.StartCPUProfile(f)
		}
		if erisFlags.root.memPoll {
			ctx, cancel := context.WithCancel(context.Background())
			stopMemPoll = cancel
			prof.MemPoll(ctx, prof.MemPollParams{
				LogEvery:        5 * time.Second,
				ProfileDir:      ".",
				ProfileAboveMiB: 512,
				Logger:          mustLogger(cmd),
			})
		}
	},
	// upstream api note:  *PostRun functions aren't called in case of a panic() in Run
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if erisFlags.root.cpuProf {
			pprof.StopCPUProfile()
		}
		if stopMemPoll != nil {
			stopMemPoll()
			stopMemPoll = nil
		}
		if tracerCloser != nil {
			_ = tracerCloser.Close()
			tracerCloser = nil
		}
	},
}

var (
	stopMemPoll  context.CancelFunc
	tracerCloser io.Closer
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	addRootFlags(rootCmd)
}

// newConfig loads the configuration, with the flags set on this command taking precedence
func newConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, err
			}
		}
	}
	cfg, err := config.Load(v, erisFlags.root.config)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// mustConfig loads the configuration and a logger, or exits
func mustConfig(cmd *cobra.Command) (config.Config, *zap.Logger, bool) {
	cfg, err := newConfig(cmd)
	if err != nil {
		wrapFatalln("load configuration", err)
		return config.Config{}, nil, false
	}
	l, err := cfg.Logger()
	if err != nil {
		wrapFatalln("create logger", err)
		return config.Config{}, nil, false
	}
	if cfg.Trace && tracerCloser == nil {
		tracerCloser = tracing.InitGlobal("eris", l, cfg.TraceAgent)
	}
	return cfg, l, true
}

func mustLogger(cmd *cobra.Command) *zap.Logger {
	_, l, ok := mustConfig(cmd)
	if !ok {
		return zap.NewNop()
	}
	return l
}

// openStore opens the configured store, or exits
func openStore(ctx context.Context, cfg config.Config, l *zap.Logger) (*config.OpenedStore, bool) {
	store, err := config.OpenStore(ctx, cfg, l)
	if err != nil {
		wrapFatalln("open block store", err)
		return nil, false
	}
	l.Debug("opened block store", zap.String("store", fmt.Sprint(store.Primary)))
	return store, true
}
