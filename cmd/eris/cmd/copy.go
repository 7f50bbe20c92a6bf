// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/eris/pkg/config"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var copyCmd = &cobra.Command{
	Use:   "copy <urn>",
	Short: "Copy the blocks of some content to another store",
	Long: `Copy every block reachable from a read capability, from the configured store to the store
described by another configuration file.

Blocks are verified while being copied: a corrupted block stops the copy.
`,
	Example: `eris copy urn:erisx2:AAAB... --to backup.yaml`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg, l, ok := mustConfig(cmd)
		if !ok {
			return
		}
		c, err := eris.ParseCapability(args[0])
		if err != nil {
			wrapFatalln("parse read capability", err)
			return
		}

		destinationCfg, err := config.Load(viper.New(), erisFlags.copy.destination)
		if err != nil {
			wrapFatalln("load destination configuration", err)
			return
		}

		source, ok := openStore(ctx, cfg, l)
		if !ok {
			return
		}
		defer func() { _ = source.Close() }()

		destination, ok := openStore(ctx, destinationCfg, l.With(zap.String("side", "destination")))
		if !ok {
			return
		}
		defer func() { _ = destination.Close() }()

		if err := storage.Replicate(ctx, c, source, destination); err != nil {
			wrapFatalln("copy blocks", err)
			return
		}
		l.Info("copied content", zap.Stringer("root", c.Root.Reference), zap.Int("level", c.Level))
	},
}

func init() {
	copyCmd.Flags().StringVar(&erisFlags.copy.destination, "to", "", "The configuration file of the destination store")
	_ = copyCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(copyCmd)
}
