package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/TuSKan/tcfzarr/tcf"
)

var (
	frameSeries  string
	frameChannel int
)

var frameCmd = &cobra.Command{
	Use:   "frame <file> <index>",
	Short: "Decode one frame and print its statistics",
	Long: `Decode one frame and print its shape and value range. Negative
indices count from the end; put them after "--".

Examples:
  tcfzarr frame cell.TCF 0
  tcfzarr frame cell.TCF --series 3DFL --channel 1 -- -1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := tcf.ParseIndex(args[1])
		if err != nil {
			return err
		}
		return runFrame(cmd.OutOrStdout(), args[0], index)
	},
}

func init() {
	frameCmd.Flags().StringVarP(&frameSeries, "series", "s", tcf.Series3D, "series to decode (3D, 2DMIP, BF, 3DFL)")
	frameCmd.Flags().IntVarP(&frameChannel, "channel", "c", 0, "fluorescence channel, with --series 3DFL")
}

func runFrame(out io.Writer, path string, index int) error {
	var (
		dec *tcf.Decoder
		err error
	)
	if frameSeries == tcf.Series3DFL {
		dec, err = tcf.OpenFluorescence(path, frameChannel, decoderOptions()...)
	} else {
		dec, err = tcf.Open(path, frameSeries, decoderOptions()...)
	}
	if err != nil {
		return err
	}

	vol, err := dec.Frame(index)
	if err != nil {
		return err
	}
	lo, hi, mean := stats(vol.Data)
	fmt.Fprintf(out, "series:   %s\n", label(dec))
	fmt.Fprintf(out, "strategy: %s\n", dec.Strategy())
	fmt.Fprintf(out, "shape:    %v\n", vol.Shape)
	fmt.Fprintf(out, "min:      %g\n", lo)
	fmt.Fprintf(out, "max:      %g\n", hi)
	fmt.Fprintf(out, "mean:     %g\n", mean)
	return nil
}

func stats(data []float32) (lo, hi, mean float64) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, v := range data {
		f := float64(v)
		lo = min(lo, f)
		hi = max(hi, f)
		sum += f
	}
	return lo, hi, sum / float64(len(data))
}
