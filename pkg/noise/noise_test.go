package noise_test

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	times := make([]float64, 50)
	events := make([]float64, 50)
	for i := range times {
		times[i] = float64((i*37)%90 + 1)
		events[i] = float64(i % 2)
	}
	ds := dataset.New()
	require.NoError(t, ds.AddNumeric("T", times))
	require.NoError(t, ds.AddNumeric("E", events))

	return ds
}

func column(t *testing.T, ds *dataset.Dataset, name string) []float64 {
	t.Helper()

	vals, err := ds.Float64s(name)
	require.NoError(t, err)

	return vals
}

func TestApplyNone(t *testing.T) {
	ds := newDataset(t)

	out, err := noise.Apply(ds, "T", noise.Config{Mechanism: noise.None}, logger)
	require.NoError(t, err)
	assert.Equal(t, column(t, ds, "T"), column(t, out, "T"))
}

func TestApplyReproducible(t *testing.T) {
	cases := []struct {
		desc string
		cfg  noise.Config
	}{
		{
			desc: "gaussian with seed 7",
			cfg:  noise.Config{Mechanism: noise.Gaussian, SNR: 5, Seed: 7},
		},
		{
			desc: "gaussian with seed 0",
			cfg:  noise.Config{Mechanism: noise.Gaussian, SNR: 0.5, Seed: 0},
		},
		{
			desc: "poisson with seed 7",
			cfg:  noise.Config{Mechanism: noise.Poisson, Seed: 7},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ds := newDataset(t)
			orig := append([]float64(nil), column(t, ds, "T")...)

			first, err := noise.Apply(ds, "T", tc.cfg, logger)
			require.NoError(t, err)
			second, err := noise.Apply(ds, "T", tc.cfg, logger)
			require.NoError(t, err)

			assert.Equal(t, column(t, first, "T"), column(t, second, "T"))
			assert.NotEqual(t, orig, column(t, first, "T"), "noise must change the values")
			assert.Equal(t, orig, column(t, ds, "T"), "input must not be modified")
			assert.Equal(t, column(t, ds, "E"), column(t, first, "E"), "other columns must be untouched")

			for _, v := range column(t, first, "T") {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.Equal(t, math.Trunc(v), v, "noised times must stay integral")
			}
		})
	}
}

func TestApplySeedChangesNoise(t *testing.T) {
	ds := newDataset(t)

	a, err := noise.Apply(ds, "T", noise.Config{Mechanism: noise.Gaussian, SNR: 1, Seed: 7}, logger)
	require.NoError(t, err)
	b, err := noise.Apply(ds, "T", noise.Config{Mechanism: noise.Gaussian, SNR: 1, Seed: 8}, logger)
	require.NoError(t, err)

	assert.NotEqual(t, column(t, a, "T"), column(t, b, "T"))
}

func TestApplyGaussianClipsAtZero(t *testing.T) {
	ds := dataset.New()
	require.NoError(t, ds.AddNumeric("T", []float64{0, 0, 0, 0, 100, 100, 100, 100}))

	out, err := noise.Apply(ds, "T", noise.Config{Mechanism: noise.Gaussian, SNR: 0.01, Seed: 3}, logger)
	require.NoError(t, err)
	for _, v := range column(t, out, "T") {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestApplyErrors(t *testing.T) {
	cases := []struct {
		desc   string
		cfg    noise.Config
		column string
		times  []float64
		err    error
	}{
		{
			desc:   "unknown mechanism",
			cfg:    noise.Config{Mechanism: noise.ParseMechanism("laplace")},
			column: "T",
			err:    errors.ErrConfiguration,
		},
		{
			desc:   "zero snr",
			cfg:    noise.Config{Mechanism: noise.Gaussian, SNR: 0},
			column: "T",
			err:    errors.ErrConfiguration,
		},
		{
			desc:   "negative snr",
			cfg:    noise.Config{Mechanism: noise.Gaussian, SNR: -1},
			column: "T",
			err:    errors.ErrConfiguration,
		},
		{
			desc:   "nan snr",
			cfg:    noise.Config{Mechanism: noise.Gaussian, SNR: math.NaN()},
			column: "T",
			err:    errors.ErrConfiguration,
		},
		{
			desc:   "missing column",
			cfg:    noise.Config{Mechanism: noise.Poisson},
			column: "missing",
			err:    errors.ErrInput,
		},
		{
			desc:   "negative time under poisson",
			cfg:    noise.Config{Mechanism: noise.Poisson},
			column: "T",
			times:  []float64{1, -2, 3},
			err:    errors.ErrInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ds := newDataset(t)
			if tc.times != nil {
				ds = dataset.New()
				require.NoError(t, ds.AddNumeric("T", tc.times))
			}

			_, err := noise.Apply(ds, tc.column, tc.cfg, logger)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParseMechanism(t *testing.T) {
	assert.Equal(t, noise.Gaussian, noise.ParseMechanism(" gaussian "))
	assert.Equal(t, noise.Poisson, noise.ParseMechanism("Poisson"))

	var m noise.Mechanism
	require.NoError(t, m.UnmarshalText([]byte("none")))
	assert.Equal(t, noise.None, m)
}
