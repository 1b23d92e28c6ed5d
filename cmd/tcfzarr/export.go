package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/TuSKan/tcfzarr/store"
)

var (
	exportCompression string
	exportPrefix      string
	exportWorkers     int
	exportGroups      []string
)

var exportCmd = &cobra.Command{
	Use:   "export <file> <bucket-url>",
	Short: "Copy the store into a bucket",
	Long: `Write every key of the virtual Zarr store to a bucket, producing a
Zarr v2 hierarchy that no longer needs the container. The bucket is named
by a gocloud URL.

Examples:
  tcfzarr export cell.TCF file:///data/cell.zarr
  tcfzarr export cell.TCF file:///data --prefix cell.zarr --compression zstd
  tcfzarr export cell.TCF file:///data/fl.zarr --group FL3D/CH0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCompression, "compression", "", "chunk compression, none or zstd (default from config)")
	exportCmd.Flags().StringVar(&exportPrefix, "prefix", "", "key prefix inside the bucket")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", 0, "keys written concurrently (default from config)")
	exportCmd.Flags().StringSliceVar(&exportGroups, "group", nil, "export only these groups")
}

func runExport(ctx context.Context, out io.Writer, path, url string) error {
	s, err := openStore(path)
	if err != nil {
		return err
	}
	defer s.Close()

	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to open bucket %s: %w", url, err)
	}
	defer bucket.Close()

	compression := cfg.Export.Compression
	if exportCompression != "" {
		compression = exportCompression
	}
	workers := cfg.Export.Workers
	if exportWorkers > 0 {
		workers = exportWorkers
	}

	report, err := store.Export(ctx, s, bucket,
		store.WithCompression(compression),
		store.WithPrefix(exportPrefix),
		store.WithWorkers(workers),
		store.WithGroups(exportGroups...),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "keys:   %d\n", report.Keys)
	fmt.Fprintf(out, "bytes:  %d\n", report.Bytes)
	fmt.Fprintf(out, "digest: %s\n", report.Digest())
	return nil
}
