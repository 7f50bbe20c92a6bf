// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

type flagsT struct {
	root struct {
		config    string
		logLevel  string
		logFormat string
		storeType string
		storePath string
		trace     bool
		agent     string
		cpuProf   bool
		memPoll   bool
	}
	encoding struct {
		blockSize string
		secret    string
	}
	encode struct {
		dryRun bool
		json   bool
	}
	decode struct {
		output string
		force  bool
	}
	serve struct {
		host     string
		port     int
		readOnly bool
		tlsCert  string
		tlsKey   string
	}
	copy struct {
		destination string
	}
	vectors struct {
		dir string
	}
	config struct {
		output string
	}
}

var erisFlags = flagsT{}

// flagKeys maps flags to the configuration keys they override
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"log-format":  "log.format",
	"store":       "store.type",
	"store-path":  "store.local.path",
	"trace":       "trace",
	"trace-agent": "traceAgent",
	"block-size":  "encoding.blockSize",
	"secret":      "encoding.secret",
	"host":        "gateway.host",
	"port":        "gateway.port",
	"read-only":   "gateway.readOnly",
}

func addEncodingFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&erisFlags.encoding.blockSize, "block-size", "",
		"The block size: 1KiB for small content, 32KiB otherwise. Defaults to the configured block size")
	cmd.Flags().StringVar(&erisFlags.encoding.secret, "secret", "",
		"The base32 convergence secret. Defaults to the configured secret, or the null secret")
}

func addOutputFlag(cmd *cobra.Command, target *string, usage string) string {
	output := "output"
	cmd.Flags().StringVarP(target, output, "o", "", usage)
	return output
}

func addRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&erisFlags.root.config, "config", "", "The configuration file. Defaults to $ERIS_CONFIG, ./.eris.yaml or $HOME/.eris.yaml")
	flags.StringVar(&erisFlags.root.logLevel, "log-level", "", "The logging level: debug, info, warn, error or none")
	flags.StringVar(&erisFlags.root.logFormat, "log-format", "", "The logging format: console or json")
	flags.StringVar(&erisFlags.root.storeType, "store", "", "The block store type: memory, local, s3, gcs, azure, badger, postgres, ipfs or http")
	flags.StringVar(&erisFlags.root.storePath, "store-path", "", "The root directory of the local block store")
	flags.BoolVar(&erisFlags.root.trace, "trace", false, "Trace every call to the block store")
	flags.StringVar(&erisFlags.root.agent, "trace-agent", "", "The host:port of the jaeger agent receiving traces")
	flags.BoolVar(&erisFlags.root.cpuProf, "cpuprof", false, "Write a CPU profile to cpu.prof")
	flags.BoolVar(&erisFlags.root.memPoll, "mempoll", false, "Log memory usage and write a heap profile to heap.prof above 512MiB")
}
