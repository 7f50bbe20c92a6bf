// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// encodeResult is printed with --json. It holds no key material besides the URN itself.
type encodeResult struct {
	URN           string `json:"urn"`
	BlockSize     int    `json:"blockSize"`
	Level         int    `json:"level"`
	RootReference string `json:"rootReference"`
	Bytes         int64  `json:"bytes"`
	SkippedBlocks int64  `json:"skippedBlocks,omitempty"`
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}

var encodeCmd = &cobra.Command{
	Use:   "encode [file|-]",
	Short: "Encode content into blocks and print its read capability",
	Long: `Encode a file, or the standard input, into encrypted blocks.

Blocks are written to the configured store and the read capability is printed as an urn:erisx2: URN.
With --dry-run, blocks are discarded and only the URN is computed.
`,
	Example: `# encode a file with small blocks
eris encode --block-size 1KiB notes.txt

# compute the URN of some content without storing it
echo "Hello world!" | eris encode --dry-run`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg, l, ok := mustConfig(cmd)
		if !ok {
			return
		}

		input, err := openInput(cmd, args)
		if err != nil {
			wrapFatalln("open input", err)
			return
		}
		defer func() { _ = input.Close() }()
		counter := &countingReader{r: input}

		opts, err := cfg.EncodeOptions(l, nil)
		if err != nil {
			wrapFatalln("encoding options", err)
			return
		}

		var (
			c       eris.ReadCapability
			skipped int64
		)
		if erisFlags.encode.dryRun {
			c, err = eris.Encode(ctx, eris.Reader(counter), eris.Discard, opts...)
		} else {
			store, ok := openStore(ctx, cfg, l)
			if !ok {
				return
			}
			defer func() { _ = store.Close() }()

			c, err = eris.Encode(ctx, eris.Reader(counter), store, opts...)
			if store.Dedup != nil {
				skipped = store.Dedup.Skipped()
			}
		}
		if err != nil {
			wrapFatalln("encode", err)
			return
		}
		l.Info("encoded content",
			zap.Int64("bytes", counter.n),
			zap.Int("level", c.Level),
			zap.Stringer("root", c.Root.Reference),
			zap.Int64("skipped_blocks", skipped),
		)

		out := cmd.OutOrStdout()
		if !erisFlags.encode.json {
			_, _ = fmt.Fprintln(out, c.String())
			return
		}
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(encodeResult{
			URN:           c.String(),
			BlockSize:     c.BlockSize,
			Level:         c.Level,
			RootReference: c.Root.Reference.String(),
			Bytes:         counter.n,
			SkippedBlocks: skipped,
		}); err != nil {
			wrapFatalln("print result", err)
		}
	},
}

func init() {
	addEncodingFlags(encodeCmd)
	encodeCmd.Flags().BoolVar(&erisFlags.encode.dryRun, "dry-run", false, "Compute the URN only, without storing blocks")
	encodeCmd.Flags().BoolVar(&erisFlags.encode.json, "json", false, "Print the read capability details as JSON")
	rootCmd.AddCommand(encodeCmd)
}
