package tcf

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Strategy is the decode path chosen for a series when it is opened.
type Strategy int

const (
	// StrategyDirect returns stored values unchanged.
	StrategyDirect Strategy = iota
	// StrategyScaled divides stored integers by 1e4.
	StrategyScaled
	// StrategyTiles rebuilds a frame from tile records. It is never
	// selected at open time, only per frame when a scaled frame turns out
	// to be a group of tiles.
	StrategyTiles
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyScaled:
		return "scaled"
	case StrategyTiles:
		return "tiles"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

const (
	scaleFactor  = 1e4
	narrowFactor = 1e3
	// scaledSince is the first format version storing scaled integers.
	scaledSince = "1.3"
)

type options struct {
	logger              *slog.Logger
	open                Opener
	correctedFLInterval bool
}

// Option configures a Decoder.
type Option func(*options)

// WithLogger sets the logger for fallback warnings. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOpener replaces the HDF5 opener.
func WithOpener(open Opener) Option {
	return func(o *options) {
		if open != nil {
			o.open = open
		}
	}
}

// WithCorrectedFluorescenceInterval makes fluorescence series report the
// stored TimeInterval attribute. Without it the time step of a
// multi-frame fluorescence series equals its frame count, which is what
// existing readers of these files report.
func WithCorrectedFluorescenceInterval() Option {
	return func(o *options) {
		o.correctedFLInterval = true
	}
}

// Decoder reads calibrated frames from one series.
type Decoder struct {
	acc      *Accessor
	series   string
	channel  int
	group    string // series group, holds geometry attributes
	frames   string // group holding the per-frame datasets
	meta     *SeriesMetadata
	strategy Strategy
	logger   *slog.Logger

	warnOnce sync.Once
}

func buildOptions(opts []Option) *options {
	o := &options{logger: slog.Default(), open: OpenHDF5}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open opens series of the container at path. "3DFL" opens fluorescence
// channel 0.
func Open(path, series string, opts ...Option) (*Decoder, error) {
	if series == Series3DFL {
		return OpenFluorescence(path, 0, opts...)
	}
	o := buildOptions(opts)
	acc := NewAccessor(path, WithAccessorOpener(o.open))
	meta, err := acc.OpenSeries(series)
	if err != nil {
		return nil, err
	}
	group := SeriesPath(series)
	return &Decoder{
		acc:      acc,
		series:   series,
		channel:  -1,
		group:    group,
		frames:   group,
		meta:     meta,
		strategy: selectStrategy(series, meta.FormatVersion),
		logger:   o.logger,
	}, nil
}

// OpenFluorescence opens one channel of the 3D fluorescence series.
func OpenFluorescence(path string, channel int, opts ...Option) (*Decoder, error) {
	o := buildOptions(opts)
	acc := NewAccessor(path, WithAccessorOpener(o.open))
	meta, err := acc.OpenSeries(Series3DFL)
	if err != nil {
		return nil, err
	}
	group := SeriesPath(Series3DFL)
	channels, err := fluorescenceChannels(acc)
	if err != nil {
		return nil, err
	}
	if channel < 0 || channel >= channels {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrUnsupportedSeries, channel, channels)
	}
	if !o.correctedFLInterval && meta.FrameCount > 1 {
		meta.TimeInterval = float64(meta.FrameCount)
	}
	return &Decoder{
		acc:      acc,
		series:   Series3DFL,
		channel:  channel,
		group:    group,
		frames:   fmt.Sprintf("%s/CH%d", group, channel),
		meta:     meta,
		strategy: StrategyDirect,
		logger:   o.logger,
	}, nil
}

// FluorescenceChannels returns the number of fluorescence channels of
// the container at path, or 0 when it has no fluorescence series.
func FluorescenceChannels(path string, opts ...Option) (int, error) {
	o := buildOptions(opts)
	acc := NewAccessor(path, WithAccessorOpener(o.open))
	if !acc.Exists(SeriesPath(Series3DFL)) {
		return 0, nil
	}
	return fluorescenceChannels(acc)
}

func fluorescenceChannels(acc *Accessor) (int, error) {
	v, err := acc.ReadAttribute(SeriesPath(Series3DFL), "Channels", int64(1))
	if err != nil {
		return 0, err
	}
	n, err := attrInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s@Channels: %w", SeriesPath(Series3DFL), err)
	}
	return n, nil
}

func selectStrategy(series, version string) Strategy {
	switch {
	case series == SeriesBF || series == Series3DFL:
		return StrategyDirect
	case version == "":
		return StrategyScaled
	case compareVersion(version, scaledSince) < 0:
		return StrategyDirect
	}
	return StrategyScaled
}

// Len returns the number of frames.
func (d *Decoder) Len() int { return d.meta.FrameCount }

// Shape returns the frame shape in Z, Y, X order.
func (d *Decoder) Shape() []int { return slices.Clone(d.meta.Shape) }

// Resolution returns micrometres per pixel in Z, Y, X order.
func (d *Decoder) Resolution() []float64 { return slices.Clone(d.meta.Resolution) }

// TimeStep returns the time between frames in seconds, 0 for a single
// frame.
func (d *Decoder) TimeStep() float64 { return d.meta.TimeInterval }

// Metadata returns a copy of the series metadata.
func (d *Decoder) Metadata() *SeriesMetadata { return d.meta.clone() }

// Strategy returns the strategy selected at open time.
func (d *Decoder) Strategy() Strategy { return d.strategy }

// Series returns the series name.
func (d *Decoder) Series() string { return d.series }

// Channel returns the fluorescence channel, or -1 for other series.
func (d *Decoder) Channel() int { return d.channel }

// Path returns the container file path.
func (d *Decoder) Path() string { return d.acc.Path() }

// FrameOf is Frame for an index of any integer type. Other types fail
// with ErrTypeMismatch.
func (d *Decoder) FrameOf(index any) (*Volume, error) {
	i, err := indexOf(index)
	if err != nil {
		return nil, err
	}
	return d.Frame(i)
}

// Frame decodes frame index. Negative indices count from the end.
func (d *Decoder) Frame(index int) (*Volume, error) {
	i, err := normalizeIndex(index, d.meta.FrameCount)
	if err != nil {
		return nil, err
	}
	path := FramePath(d.frames, i)
	arr, err := d.acc.ReadDataset(path)
	if err != nil {
		if d.strategy == StrategyScaled && errors.Is(err, ErrNotADataset) {
			return d.reconstruct(i)
		}
		return nil, fmt.Errorf("failed to read frame %d: %w", i, err)
	}
	return d.decode(arr), nil
}

// Raw returns frame index as stored, without calibration.
func (d *Decoder) Raw(index int) (*Array, error) {
	i, err := normalizeIndex(index, d.meta.FrameCount)
	if err != nil {
		return nil, err
	}
	return d.acc.ReadDataset(FramePath(d.frames, i))
}

func (d *Decoder) decode(arr *Array) *Volume {
	vol := newVolume(arr.Shape)
	switch {
	case d.strategy == StrategyScaled && !arr.Float:
		for i, v := range arr.Values {
			vol.Data[i] = float32(v) / scaleFactor
		}
	default:
		for i, v := range arr.Values {
			vol.Data[i] = float32(v)
		}
	}
	return vol
}
