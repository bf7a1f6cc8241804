// Package node runs a data station: it answers the coordinator's tasks with
// computations over its private dataset, under a privacy policy and noise
// configuration that only the node's operator controls.
package node

import (
	"github.com/absmach/fedkm/pkg/guard"
	"github.com/absmach/fedkm/pkg/noise"
)

// Config is the node's local privacy configuration. It is read once at
// start-up and never leaves the node.
type Config struct {
	MinRecords          int             `env:"NODE_MIN_RECORDS"           envDefault:"3"`
	AllowedTimeColumns  []string        `env:"NODE_ALLOWED_TIME_COLUMNS"  envDefault:".*" envSeparator:";"`
	FilterColumn        string          `env:"NODE_FILTER_COLUMN"`
	AllowedFilterValues []string        `env:"NODE_FILTER_VALUES_ALLOWED" envSeparator:","`
	NoiseType           noise.Mechanism `env:"NODE_NOISE_TYPE"            envDefault:"NONE"`
	SNR                 float64         `env:"NODE_SNR"                   envDefault:"0"`
	RandomSeed          int64           `env:"NODE_RANDOM_SEED"           envDefault:"0"`
}

func (c Config) Policy() (guard.Policy, error) {
	return guard.New(guard.Config{
		MinRecords:          c.MinRecords,
		AllowedTimeColumns:  c.AllowedTimeColumns,
		FilterColumn:        c.FilterColumn,
		AllowedFilterValues: c.AllowedFilterValues,
	})
}

func (c Config) Noise() noise.Config {
	return noise.Config{
		Mechanism: c.NoiseType,
		SNR:       c.SNR,
		Seed:      c.RandomSeed,
	}
}
