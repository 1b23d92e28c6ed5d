package main

import (
	"context"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
)

var getDigest bool

var getCmd = &cobra.Command{
	Use:   "get <file> <key>",
	Short: "Print the value stored under a key",
	Long: `Print the document or chunk stored under a key of the virtual Zarr
store. Chunks are raw little-endian float32; use --digest to print their
content digest instead.

Examples:
  tcfzarr get cell.TCF RI3D/.zattrs
  tcfzarr get cell.TCF RI3D/0/0.0.0.0 --digest`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
	},
}

func init() {
	getCmd.Flags().BoolVar(&getDigest, "digest", false, "print the sha256 digest instead of the value")
}

func runGet(ctx context.Context, out io.Writer, path, key string) error {
	s, err := openStore(path)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if getDigest {
		_, err = fmt.Fprintln(out, digest.FromBytes(data))
		return err
	}
	_, err = out.Write(data)
	return err
}
