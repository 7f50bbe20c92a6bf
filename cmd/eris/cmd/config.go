// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

const redacted = "<redacted>"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML: defaults, overridden by the configuration file,
then by ERIS_* environment variables, then by flags.

With --output, the configuration is written to a file which may be used with --config.
Convergence secrets and connection strings are redacted when printed.
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, ok := mustConfig(cmd)
		if !ok {
			return
		}
		if erisFlags.config.output != "" {
			if err := cfg.Write(erisFlags.config.output); err != nil {
				wrapFatalln("write configuration", err)
			}
			return
		}

		if cfg.Encoding.Secret != "" {
			cfg.Encoding.Secret = redacted
		}
		if cfg.Store.Azure.ConnectionString != "" {
			cfg.Store.Azure.ConnectionString = redacted
		}
		if cfg.Store.Postgres.URL != "" {
			cfg.Store.Postgres.URL = redacted
		}
		data, err := cfg.YAML()
		if err != nil {
			wrapFatalln("print configuration", err)
			return
		}
		_, _ = cmd.OutOrStdout().Write(data)
	},
}

func init() {
	addEncodingFlags(configCmd)
	addOutputFlag(configCmd, &erisFlags.config.output, "Write the configuration to this file")
	rootCmd.AddCommand(configCmd)
}
