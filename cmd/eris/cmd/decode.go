// Copyright © 2018 One Concern

package cmd

import (
	"bufio"
	"io"
	"os"

	"github.com/oneconcern/eris/pkg/errors"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var errTerminal = errors.New("refusing to write binary content to a terminal, use --output or --force")

// isTerminal tells if w is a terminal
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var decodeCmd = &cobra.Command{
	Use:   "decode <urn>",
	Short: "Decode content from its read capability",
	Long: `Decode the content referred to by an urn:erisx2: read capability.

Blocks are fetched from the configured store and verified against their reference before
being decrypted. The content is written to the standard output, or to a file with --output.
`,
	Example: `eris decode urn:erisx2:AAAB... -o notes.txt`,
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

		var out io.Writer = cmd.OutOrStdout()
		if erisFlags.decode.output != "" {
			f, err := os.Create(erisFlags.decode.output)
			if err != nil {
				wrapFatalln("create output", err)
				return
			}
			defer func() { _ = f.Close() }()
			out = f
		} else if !erisFlags.decode.force && isTerminal(out) {
			wrapFatalln("decode", errTerminal)
			return
		}

		store, ok := openStore(ctx, cfg, l)
		if !ok {
			return
		}
		defer func() { _ = store.Close() }()

		w := bufio.NewWriter(out)
		n, err := eris.Decode(ctx, c, store, w, eris.WithLogger(l))
		if err != nil {
			wrapFatalln("decode", err)
			return
		}
		if err := w.Flush(); err != nil {
			wrapFatalln("write output", err)
			return
		}
		l.Info("decoded content", zap.Int64("bytes", n), zap.Stringer("root", c.Root.Reference))
	},
}

func init() {
	addOutputFlag(decodeCmd, &erisFlags.decode.output, "Write the content to this file instead of the standard output")
	decodeCmd.Flags().BoolVar(&erisFlags.decode.force, "force", false, "Write to the standard output even when it is a terminal")
	rootCmd.AddCommand(decodeCmd)
}
