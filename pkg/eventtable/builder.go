// Package eventtable builds a node's local life table: the distinct event
// times it contributes to the global time axis, and the per-time death,
// censoring and at-risk counts aligned to that axis.
package eventtable

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/guard"
	"github.com/absmach/fedkm/pkg/noise"
)

// MaxBins bounds the length of a binned time axis.
const MaxBins = 10000

type Params struct {
	TimeColumn   string
	CensorColumn string
	// FilterValue selects a cohort through the node's filter column.
	FilterValue string
	// BinSize, when positive, maps every time onto the right edge of its
	// (previous, edge] interval of the axis.
	BinSize int
}

// Builder runs a node's local computations under its privacy policy and
// noise configuration.
type Builder struct {
	policy guard.Policy
	noise  noise.Config
	logger *slog.Logger
}

func NewBuilder(policy guard.Policy, nc noise.Config, logger *slog.Logger) *Builder {
	return &Builder{
		policy: policy,
		noise:  nc,
		logger: logger,
	}
}

// UniqueEventTimes returns the sorted distinct noised times of the dataset.
func (b *Builder) UniqueEventTimes(ds *dataset.Dataset, p Params) ([]float64, error) {
	ds, err := b.prepare(ds, p)
	if err != nil {
		return nil, err
	}

	times, err := ds.Float64s(p.TimeColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrInput, err)
	}

	unique := slices.Clone(times)
	slices.Sort(unique)

	return slices.Compact(unique), nil
}

// Build counts removals and deaths per time, aligns them to axis and
// computes the at-risk counts.
func (b *Builder) Build(ds *dataset.Dataset, p Params, axis []float64) (Table, error) {
	ds, err := b.prepare(ds, p)
	if err != nil {
		return Table{}, err
	}

	times, err := ds.Float64s(p.TimeColumn)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %s", errors.ErrInput, err)
	}
	events, err := ds.Float64s(p.CensorColumn)
	if err != nil {
		return Table{}, fmt.Errorf("%w: censor column: %s", errors.ErrInput, err)
	}

	axis = slices.Clone(axis)
	slices.Sort(axis)
	axis = slices.Compact(axis)

	if p.BinSize > 0 {
		b.logger.Info("Binning event times to compute tables", slog.Int("bin_size", p.BinSize))
		times = Bin(times, axis)
	}

	t := Table{
		TimeColumn: p.TimeColumn,
		Rows:       make([]Row, len(axis)),
	}
	index := make(map[float64]int, len(axis))
	for i, v := range axis {
		t.Rows[i].Time = v
		index[v] = i
	}

	for i, v := range times {
		e := events[i]
		if e != 0 && e != 1 {
			return Table{}, fmt.Errorf("%w: censor column '%s' must hold 0 or 1, got %v", errors.ErrInput, p.CensorColumn, e)
		}
		j, ok := index[v]
		if !ok {
			continue
		}
		t.Rows[j].Removed++
		if e == 1 {
			t.Rows[j].Observed++
		}
	}

	var atRisk int64
	for i := len(t.Rows) - 1; i >= 0; i-- {
		r := &t.Rows[i]
		r.Censored = r.Removed - r.Observed
		atRisk += r.Removed
		r.AtRisk = atRisk
	}

	return t, nil
}

func (b *Builder) prepare(ds *dataset.Dataset, p Params) (*dataset.Dataset, error) {
	if p.FilterValue != "" {
		filtered, err := b.policy.Filter(ds, p.FilterValue)
		if err != nil {
			return nil, err
		}
		b.logger.Info("Filtered cohort", slog.Int("overall", ds.Len()), slog.Int("cohort", filtered.Len()))
		ds = filtered
	}

	if reserved(p.TimeColumn) {
		return nil, fmt.Errorf("%w: column '%s' clashes with an event table count", errors.ErrInput, p.TimeColumn)
	}
	if err := b.policy.Validate(ds, p.TimeColumn); err != nil {
		return nil, err
	}

	times, err := ds.Float64s(p.TimeColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrInput, err)
	}
	for _, v := range times {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: time column '%s' must hold finite non-negative values, got %v", errors.ErrInput, p.TimeColumn, v)
		}
	}

	return noise.Apply(ds, p.TimeColumn, b.noise, b.logger)
}

func reserved(column string) bool {
	switch column {
	case removedKey, observedKey, censoredKey, atRiskKey:
		return true
	default:
		return false
	}
}

// Bin maps every time t onto the smallest axis value e with prev < t <= e.
// Times outside the axis range map to 0. axis must be sorted.
func Bin(times, axis []float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		j := sort.SearchFloat64s(axis, t)
		if j == 0 || j == len(axis) {
			continue
		}
		out[i] = axis[j]
	}

	return out
}

// BinnedAxis returns 0, size, 2*size, ... up to the first edge not below
// maxTime. Axes longer than MaxBins are rejected.
func BinnedAxis(maxTime float64, size int) ([]float64, error) {
	if size <= 0 {
		return nil, nil
	}
	if maxTime < 0 || math.IsNaN(maxTime) || math.IsInf(maxTime, 0) {
		return nil, fmt.Errorf("%w: invalid maximum event time %v", errors.ErrInput, maxTime)
	}

	step := float64(size)
	limit := math.Ceil(maxTime) + step
	if n := math.Ceil(limit / step); n > MaxBins {
		return nil, fmt.Errorf("%w: bin size %d yields %.0f bins, at most %d are allowed", errors.ErrInput, size, n, MaxBins)
	}

	var axis []float64
	for v := 0.0; v < limit; v += step {
		axis = append(axis, v)
	}

	return axis, nil
}
