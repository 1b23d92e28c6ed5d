package tcf_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/tcfzarr/internal/tcftest"
	"github.com/TuSKan/tcfzarr/tcf"
)

func openSample(t *testing.T, c *tcftest.Container, series string, opts ...tcf.Option) *tcf.Decoder {
	t.Helper()
	opts = append([]tcf.Option{tcf.WithOpener(c.Opener())}, opts...)
	dec, err := tcf.Open("sample.TCF", series, opts...)
	require.NoError(t, err)
	return dec
}

func TestDecoder_Scaled(t *testing.T) {
	c := sampleContainer()
	dec := openSample(t, c, tcf.Series3D)

	require.Equal(t, tcf.StrategyScaled, dec.Strategy())
	require.Equal(t, 3, dec.Len())
	require.Equal(t, []int{2, 3, 4}, dec.Shape())
	require.Equal(t, []float64{0.5, 0.25, 0.125}, dec.Resolution())
	require.Equal(t, 2.5, dec.TimeStep())

	vol, err := dec.Frame(0)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 4}, vol.Shape)
	require.Equal(t, float32(13000)/1e4, vol.At(0, 0, 0))
	require.Equal(t, float32(13023)/1e4, vol.At(1, 2, 3))
	require.Equal(t, 0, c.Live())
}

func TestDecoder_NegativeIndexWraps(t *testing.T) {
	dec := openSample(t, sampleContainer(), tcf.Series3D)

	for i := range dec.Len() {
		pos, err := dec.Frame(i)
		require.NoError(t, err)
		neg, err := dec.Frame(i - dec.Len())
		require.NoError(t, err)
		require.Equal(t, pos.Data, neg.Data, "frame %d", i)
	}
}

func TestDecoder_IndexErrors(t *testing.T) {
	dec := openSample(t, sampleContainer(), tcf.Series3D)

	_, err := dec.Frame(3)
	require.ErrorIs(t, err, tcf.ErrIndexOutOfRange)
	_, err = dec.Frame(-4)
	require.ErrorIs(t, err, tcf.ErrIndexOutOfRange)

	_, err = dec.FrameOf(1.0)
	require.ErrorIs(t, err, tcf.ErrTypeMismatch)
	_, err = dec.FrameOf("1")
	require.ErrorIs(t, err, tcf.ErrTypeMismatch)

	vol, err := dec.FrameOf(uint8(2))
	require.NoError(t, err)
	last, err := dec.FrameOf(int64(-1))
	require.NoError(t, err)
	require.Equal(t, vol.Data, last.Data)
}

func TestDecoder_LegacyDirect(t *testing.T) {
	c := tcftest.New()
	c.AddSeries(tcf.Series3D, tcftest.Series{
		FrameCount:    1,
		Shape:         []int{1, 1, 3},
		Resolution:    []float64{1, 1, 1},
		FormatVersion: "1.2.9",
	})
	c.FloatDataset("/Data/3D/000000", []int{1, 1, 3}, []float64{1.25, 1.375, 1.5}, nil)

	dec := openSample(t, c, tcf.Series3D)
	require.Equal(t, tcf.StrategyDirect, dec.Strategy())

	vol, err := dec.Frame(0)
	require.NoError(t, err)
	require.Equal(t, []float32{1.25, 1.375, 1.5}, vol.Data)
}

func TestDecoder_ScaledKeepsFloatData(t *testing.T) {
	c := tcftest.New()
	c.AddSeries(tcf.Series2DMIP, tcftest.Series{
		FrameCount: 1,
		Shape:      []int{1, 2},
		Resolution: []float64{1, 1},
	})
	c.FloatDataset("/Data/2DMIP/000000", []int{1, 2}, []float64{1.3125, 1.4375}, nil)

	dec := openSample(t, c, tcf.Series2DMIP)
	require.Equal(t, tcf.StrategyScaled, dec.Strategy(), "no version means scaled")

	vol, err := dec.Frame(0)
	require.NoError(t, err)
	require.Equal(t, []float32{1.3125, 1.4375}, vol.Data)
}

func TestDecoder_BrightFieldIsDirect(t *testing.T) {
	c := tcftest.New()
	c.AddSeries(tcf.SeriesBF, tcftest.Series{
		FrameCount:    2,
		Shape:         []int{2, 2},
		Resolution:    []float64{0.1, 0.1},
		TimeInterval:  1,
		FormatVersion: "1.4",
	})
	c.AddFrame("/Data/BF", 0, []int{2, 2, 3}, tcftest.Ramp(12, 0, 10))
	c.AddFrame("/Data/BF", 1, []int{2, 2, 3}, tcftest.Ramp(12, 5, 10))

	dec := openSample(t, c, tcf.SeriesBF)
	require.Equal(t, tcf.StrategyDirect, dec.Strategy())

	vol, err := dec.Frame(1)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 3}, vol.Shape)
	require.Equal(t, float32(115), vol.At(1, 1, 2))
}

func TestDecoder_Raw(t *testing.T) {
	dec := openSample(t, sampleContainer(), tcf.Series3D)

	raw, err := dec.Raw(-1)
	require.NoError(t, err)
	require.Equal(t, 13200.0, raw.Values[0])
}

func fluorescenceContainer() *tcftest.Container {
	c := tcftest.New()
	c.AddSeries(tcf.Series3DFL, tcftest.Series{
		FrameCount:   4,
		Shape:        []int{1, 2, 2},
		Resolution:   []float64{1, 0.5, 0.5},
		TimeInterval: 30,
		Channels:     2,
	})
	for ch := range 2 {
		for i := range 4 {
			c.AddFrame(fmt.Sprintf("/Data/3DFL/CH%d", ch), i, []int{1, 2, 2}, tcftest.Ramp(4, float64(100*ch+i), 1))
		}
	}
	return c
}

func TestOpenFluorescence(t *testing.T) {
	c := fluorescenceContainer()

	dec, err := tcf.OpenFluorescence("x", 1, tcf.WithOpener(c.Opener()))
	require.NoError(t, err)
	require.Equal(t, tcf.StrategyDirect, dec.Strategy())
	require.Equal(t, 1, dec.Channel())
	require.Equal(t, 4.0, dec.TimeStep(), "time step reports the frame count")

	vol, err := dec.Frame(2)
	require.NoError(t, err)
	require.Equal(t, []float32{102, 103, 104, 105}, vol.Data)

	fixed, err := tcf.OpenFluorescence("x", 1, tcf.WithOpener(c.Opener()), tcf.WithCorrectedFluorescenceInterval())
	require.NoError(t, err)
	require.Equal(t, 30.0, fixed.TimeStep())

	_, err = tcf.OpenFluorescence("x", 2, tcf.WithOpener(c.Opener()))
	require.ErrorIs(t, err, tcf.ErrUnsupportedSeries)

	n, err := tcf.FluorescenceChannels("x", tcf.WithOpener(c.Opener()))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = tcf.FluorescenceChannels("x", tcf.WithOpener(sampleContainer().Opener()))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOpen_FluorescenceSeriesIsChannelZero(t *testing.T) {
	dec := openSample(t, fluorescenceContainer(), tcf.Series3DFL)
	require.Equal(t, 0, dec.Channel())

	vol, err := dec.Frame(0)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 1, 2, 3}, vol.Data)
}

func TestParseIndex(t *testing.T) {
	i, err := tcf.ParseIndex(" -2 ")
	require.NoError(t, err)
	require.Equal(t, -2, i)

	_, err = tcf.ParseIndex("1.5")
	require.ErrorIs(t, err, tcf.ErrTypeMismatch)
}
