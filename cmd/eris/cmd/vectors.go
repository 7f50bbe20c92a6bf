// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/oneconcern/eris/pkg/vectors"
	"github.com/spf13/cobra"
)

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Generate and verify test vectors",
	Long: `Test vectors are JSON files holding some content, the parameters used to encode it,
the expected read capability and every expected block.

Other implementations of the encoding may use them to check their output.
`,
}

var vectorsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the standard test vectors as JSON files",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		all, err := vectors.Standard(cmd.Context())
		if err != nil {
			wrapFatalln("generate vectors", err)
			return
		}
		dir := erisFlags.vectors.dir
		if err := os.MkdirAll(dir, 0o700); err != nil {
			wrapFatalln("create vectors directory", err)
			return
		}
		for _, v := range all {
			path := filepath.Join(dir, fmt.Sprintf("eris-test-vector-%02d.json", v.ID))
			if err := vectors.WriteFile(path, v); err != nil {
				wrapFatalln("write vector", err)
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		}
	},
}

var vectorsVerifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Verify test vectors against this implementation",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			v, err := vectors.ReadFile(path)
			if err == nil {
				err = vectors.Verify(cmd.Context(), v)
			}
			if err != nil {
				failed++
				_, _ = fmt.Fprintf(out, "%s\t%s\t%v\n", color.RedString("FAIL"), path, err)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", color.GreenString("OK"), path, v.Description)
		}
		if failed > 0 {
			wrapFatalWithCodef(1, "%d of %d vectors failed", failed, len(args))
		}
	},
}

func init() {
	vectorsGenerateCmd.Flags().StringVar(&erisFlags.vectors.dir, "dir", "test-vectors", "The directory receiving the vectors")
	vectorsCmd.AddCommand(vectorsGenerateCmd, vectorsVerifyCmd)
	rootCmd.AddCommand(vectorsCmd)
}
