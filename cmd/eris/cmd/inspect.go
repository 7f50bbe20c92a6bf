// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"math/big"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/oneconcern/eris/pkg/eris"
	"github.com/spf13/cobra"
)

// capacity is the largest content a tree of this shape may hold, short of the final padding byte
func capacity(c eris.ReadCapability) string {
	leaves := new(big.Int).Exp(big.NewInt(int64(c.Arity())), big.NewInt(int64(c.Level)), nil)
	size := new(big.Int).Mul(leaves, big.NewInt(int64(c.BlockSize)))
	if size.IsInt64() {
		return units.BytesSize(float64(size.Int64()))
	}
	return size.String() + " bytes"
}

func inspectTable(c eris.ReadCapability) *uitable.Table {
	label := color.New(color.FgHiBlack).SprintFunc()
	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow(label("block size:"), units.BytesSize(float64(c.BlockSize)))
	table.AddRow(label("arity:"), c.Arity())
	table.AddRow(label("level:"), c.Level)
	table.AddRow(label("blocks to root:"), c.Level+1)
	table.AddRow(label("max content:"), capacity(c))
	table.AddRow(label("root reference:"), color.CyanString(c.Root.Reference.String()))
	return table
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <urn>",
	Short: "Show the details of a read capability",
	Long: `Show the details of an urn:erisx2: read capability: block size, arity, tree level and root reference.

The root key is not shown.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := eris.ParseCapability(args[0])
		if err != nil {
			wrapFatalln("parse read capability", err)
			return
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), inspectTable(c))
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
