package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var lsDir bool

var lsCmd = &cobra.Command{
	Use:   "ls <file> [prefix]",
	Short: "List store keys",
	Long: `List the keys of the virtual Zarr store, optionally under a prefix.

Examples:
  # Every key
  tcfzarr ls cell.TCF

  # Chunks of the refractive-index array
  tcfzarr ls cell.TCF RI3D/0/

  # Immediate children only
  tcfzarr ls cell.TCF FL3D --dir`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 2 {
			prefix = args[1]
		}
		return runLs(cmd.OutOrStdout(), args[0], prefix)
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsDir, "dir", "d", false, "list immediate children of prefix")
}

func runLs(out io.Writer, path, prefix string) error {
	s, err := openStore(path)
	if err != nil {
		return err
	}
	defer s.Close()

	if lsDir {
		for _, name := range s.ListDir(prefix) {
			fmt.Fprintln(out, name)
		}
		return nil
	}
	for key := range s.ListPrefix(prefix) {
		fmt.Fprintln(out, key)
	}
	return nil
}
