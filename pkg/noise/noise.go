// Package noise perturbs a node's event times before they leave the node.
//
// Every call seeds its own generator from the node's configured seed: the same
// dataset, column and configuration always yield the same noised values.
package noise

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/absmach/fedkm/pkg/dataset"
	"github.com/absmach/fedkm/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const pcgStream = 0x6b61706c616e

type Mechanism string

const (
	None     Mechanism = "NONE"
	Gaussian Mechanism = "GAUSSIAN"
	Poisson  Mechanism = "POISSON"
)

func ParseMechanism(s string) Mechanism {
	return Mechanism(strings.ToUpper(strings.TrimSpace(s)))
}

func (m *Mechanism) UnmarshalText(text []byte) error {
	*m = ParseMechanism(string(text))

	return nil
}

func (m Mechanism) String() string {
	return string(m)
}

type Config struct {
	Mechanism Mechanism
	// SNR is the signal-to-noise ratio used by the Gaussian mechanism.
	SNR  float64
	Seed int64
}

// Apply returns a copy of ds with noise added to timeColumn. ds is never
// modified.
func Apply(ds *dataset.Dataset, timeColumn string, cfg Config, logger *slog.Logger) (*dataset.Dataset, error) {
	switch cfg.Mechanism {
	case None:
		return ds, nil
	case Gaussian:
		if !(cfg.SNR > 0) {
			return nil, fmt.Errorf("%w: gaussian noise requires a positive signal-to-noise ratio, got %v", errors.ErrConfiguration, cfg.SNR)
		}
	case Poisson:
	default:
		return nil, fmt.Errorf("%w: invalid noise type: %s", errors.ErrConfiguration, cfg.Mechanism)
	}

	times, err := ds.Float64s(timeColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrInput, err)
	}

	src := newSource(cfg.Seed, logger)

	var noised []float64
	switch cfg.Mechanism {
	case Gaussian:
		noised = gaussian(times, cfg.SNR, src, logger)
	case Poisson:
		if noised, err = poisson(times, src); err != nil {
			return nil, err
		}
		logger.Info("Poisson noise applied to the event times", slog.String("column", timeColumn))
	}

	out := ds.Clone()
	if err := out.SetFloat64s(timeColumn, noised); err != nil {
		return nil, err
	}

	return out, nil
}

func newSource(seed int64, logger *slog.Logger) rand.Source {
	if seed == 0 {
		logger.Warn("Random seed is set to 0, this is not safe and should only be done for testing")
	}

	return rand.NewPCG(uint64(seed), pcgStream)
}

// gaussian adds round(N(0, sqrt(var/snr))) to every value and clips at 0.
func gaussian(times []float64, snr float64, src rand.Source, logger *slog.Logger) []float64 {
	variance := stat.PopVariance(times, nil)
	sd := math.Sqrt(variance / snr)
	dist := distuv.Normal{Mu: 0, Sigma: sd, Src: src}

	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = math.Max(t+math.RoundToEven(dist.Rand()), 0)
	}

	logger.Info("Gaussian noise applied to the event times",
		slog.Float64("variance", variance),
		slog.Float64("noise_sd", sd),
	)

	return out
}

// poisson replaces every value by a draw from Poisson(value).
func poisson(times []float64, src rand.Source) ([]float64, error) {
	out := make([]float64, len(times))
	for i, t := range times {
		if t < 0 || math.IsNaN(t) {
			return nil, fmt.Errorf("%w: poisson noise requires non-negative event times, got %v", errors.ErrInput, t)
		}
		out[i] = distuv.Poisson{Lambda: t, Src: src}.Rand()
	}

	return out, nil
}
