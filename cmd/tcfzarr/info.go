package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TuSKan/tcfzarr/tcf"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show the series of a container",
	Long: `Show every series the container holds: frame count, shape, voxel
resolution, time step and the decoding strategy.

Examples:
  tcfzarr info cell.TCF`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(cmd.OutOrStdout(), args[0])
	},
}

func runInfo(out io.Writer, path string) error {
	decoders, err := openAll(path)
	if err != nil {
		return err
	}
	if len(decoders) == 0 {
		return fmt.Errorf("%w: %s holds no known series", tcf.ErrUnsupportedSeries, path)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tFRAMES\tSHAPE\tRESOLUTION\tDT\tVOXEL\tSTRATEGY\tVERSION")
	for _, dec := range decoders {
		meta := dec.Metadata()
		fmt.Fprintf(w, "%s\t%d\t%v\t%v\t%g\t%g\t%s\t%s\n",
			label(dec), meta.FrameCount, meta.Shape, meta.Resolution, meta.TimeInterval,
			meta.VoxelVolume(), dec.Strategy(), meta.FormatVersion)
	}
	return w.Flush()
}

// openAll opens every series of the container, one decoder per
// fluorescence channel.
func openAll(path string) ([]*tcf.Decoder, error) {
	opts := decoderOptions()
	var decoders []*tcf.Decoder
	for _, series := range []string{tcf.Series3D, tcf.Series2DMIP, tcf.SeriesBF} {
		dec, err := tcf.Open(path, series, opts...)
		if errors.Is(err, tcf.ErrUnsupportedSeries) {
			continue
		}
		if err != nil {
			return nil, err
		}
		decoders = append(decoders, dec)
	}

	channels, err := tcf.FluorescenceChannels(path, opts...)
	if err != nil {
		return nil, err
	}
	for ch := range channels {
		dec, err := tcf.OpenFluorescence(path, ch, opts...)
		if err != nil {
			return nil, err
		}
		decoders = append(decoders, dec)
	}
	return decoders, nil
}

func label(dec *tcf.Decoder) string {
	if dec.Series() == tcf.Series3DFL {
		return fmt.Sprintf("%s/CH%d", dec.Series(), dec.Channel())
	}
	return dec.Series()
}
