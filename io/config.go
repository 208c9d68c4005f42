/*package io reads the engine configuration and the source and receptor
catalogs.
*/
package io

import (
	"fmt"
	"math/rand"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/gomech/couple"
	"github.com/phil-mansfield/gomech/events"
)

const ExampleConfigFile = `[Units]

#######################
# Required Parameters #
#######################

# Conversion factors from code units to physical units. Every run must state
# them explicitly; there are no defaults because silently wrong units are the
# most expensive bug this kind of code can have.

# One code mass in solar masses.
MassSolar = 1e10
# One code velocity in km/s.
VelocityKMS = 1.0
# One code length in kpc.
LengthKPC = 1.0
# One code density in hydrogen atoms per cm^3.
DensityNH = 404.6
# One code time in Gyr.
TimeGyr = 0.978

[Coupling]

#######################
# Optional Parameters #
#######################

# Hard physical limit on the coupling range, in kpc. Neighbors beyond this
# distance receive nothing no matter how large the kernels are.
# CutoffRadius = 2.0

# Cap on the effective ejecta velocity, in km/s.
# MaxEjectaVelocity = 1e4

# Width of the periodic box in code units. Leave unset (or zero) for
# non-periodic runs.
# TotalWidth = 0

# Cells per side of the uniform neighbor-search grid.
# Cells = 16

[Cooling]

#######################
# Optional Parameters #
#######################

# Normalization of the cooling-mass power law, in solar masses per unit of
# 10^51 erg.
# MassCoefficient = 2293

# Upper clamp on the cooling mass, in solar masses.
# MaxCoolingMass = 5382

# Terminal velocity scale, in km/s.
# ReferenceVelocity = 210

# Reduce the thermal residual for receptors beyond the cooling radius.
# ThermalSuppression = false

[Channels]

#######################
# Optional Parameters #
#######################

# Enable the continuous stellar-wind channel alongside the discrete events.
# Winds = false

# Replace the built-in piecewise rate law with a tabulated one. The file
# holds two columns: age in Myr and rate in events per Myr per Msun.
# RateTable = path/to/rates.txt

# Fire the fractional part of the expected event count stochastically
# instead of always rounding down.
# Stochastic = false
# Seed = 0

[Species]

#######################
# Optional Parameters #
#######################

# Number of tracked abundance species.
# Count = 1

# Solar abundance used to normalize the leading species.
# SolarAbundance = 0.02`

type UnitsConfig struct {
	// Required
	MassSolar, VelocityKMS, LengthKPC, DensityNH, TimeGyr float64
}

type CouplingConfig struct {
	// Optional
	CutoffRadius      float64 // kpc
	MaxEjectaVelocity float64 // km/s
	TotalWidth        float64 // code units, 0 for non-periodic
	Cells             int
}

type CoolingConfig struct {
	// Optional
	MassCoefficient    float64 // Msun
	MaxCoolingMass     float64 // Msun
	ReferenceVelocity  float64 // km/s
	ThermalSuppression bool
}

type ChannelsConfig struct {
	// Optional
	Winds      bool
	RateTable  string
	Stochastic bool
	Seed       int64
}

type SpeciesConfig struct {
	// Optional
	Count          int
	SolarAbundance float64
}

type Config struct {
	Units    UnitsConfig
	Coupling CouplingConfig
	Cooling  CoolingConfig
	Channels ChannelsConfig
	Species  SpeciesConfig
}

func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Coupling.CutoffRadius = 2.0
	cfg.Coupling.MaxEjectaVelocity = 1e4
	cfg.Coupling.Cells = 16
	cfg.Cooling.MassCoefficient = 2293
	cfg.Cooling.MaxCoolingMass = 5382
	cfg.Cooling.ReferenceVelocity = 210
	cfg.Species.Count = 1
	cfg.Species.SolarAbundance = 0.02
	return cfg
}

// ReadConfig reads and validates a configuration file. Missing optional
// parameters take their defaults; missing required ones are errors.
func ReadConfig(fname string) (*Config, error) {
	cfg := DefaultConfig()
	if err := gcfg.ReadFileInto(cfg, fname); err != nil {
		return nil, fmt.Errorf("reading config '%s': %w", fname, err)
	}
	if err := cfg.CheckInit(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", fname, err)
	}
	return cfg, nil
}

func (cfg *Config) CheckInit() error {
	u := &cfg.Units
	switch {
	case u.MassSolar <= 0:
		return fmt.Errorf("need a positive MassSolar in [Units]")
	case u.VelocityKMS <= 0:
		return fmt.Errorf("need a positive VelocityKMS in [Units]")
	case u.LengthKPC <= 0:
		return fmt.Errorf("need a positive LengthKPC in [Units]")
	case u.DensityNH <= 0:
		return fmt.Errorf("need a positive DensityNH in [Units]")
	case u.TimeGyr <= 0:
		return fmt.Errorf("need a positive TimeGyr in [Units]")
	}

	if cfg.Coupling.CutoffRadius <= 0 {
		return fmt.Errorf("CutoffRadius must be positive, not %g",
			cfg.Coupling.CutoffRadius)
	}
	if cfg.Coupling.MaxEjectaVelocity <= 0 {
		return fmt.Errorf("MaxEjectaVelocity must be positive, not %g",
			cfg.Coupling.MaxEjectaVelocity)
	}
	if cfg.Coupling.Cells <= 0 {
		return fmt.Errorf("Cells must be positive, not %d",
			cfg.Coupling.Cells)
	}
	if cfg.Cooling.MassCoefficient <= 0 || cfg.Cooling.MaxCoolingMass <= 0 ||
		cfg.Cooling.ReferenceVelocity <= 0 {
		return fmt.Errorf("[Cooling] parameters must be positive")
	}
	if cfg.Species.Count <= 0 {
		return fmt.Errorf("Count must be positive, not %d", cfg.Species.Count)
	}
	if cfg.Species.SolarAbundance <= 0 {
		return fmt.Errorf("SolarAbundance must be positive, not %g",
			cfg.Species.SolarAbundance)
	}
	return nil
}

// Params converts the configuration into the code-unit parameter set the
// coupling passes consume.
func (cfg *Config) Params() *couple.Params {
	u := &cfg.Units
	return &couple.Params{
		Units: couple.Units{
			MassSolar: u.MassSolar,
			VelKMS:    u.VelocityKMS,
			LengthKPC: u.LengthKPC,
			DensityNH: u.DensityNH,
			TimeGyr:   u.TimeGyr,
		},
		TotalWidth:         cfg.Coupling.TotalWidth,
		CutoffRadius:       cfg.Coupling.CutoffRadius / u.LengthKPC,
		MaxEjectaVel:       cfg.Coupling.MaxEjectaVelocity / u.VelocityKMS,
		CoolMassCoeff:      cfg.Cooling.MassCoefficient / u.MassSolar,
		MaxCoolMass:        cfg.Cooling.MaxCoolingMass / u.MassSolar,
		CoolRefVelKMS:      cfg.Cooling.ReferenceVelocity,
		SolarAbundance:     cfg.Species.SolarAbundance,
		ThermalSuppression: cfg.Cooling.ThermalSuppression,
		NumSpecies:         cfg.Species.Count,
	}
}

// Selector builds the event selector the configuration describes.
func (cfg *Config) Selector() (*events.Selector, error) {
	sel := &events.Selector{
		TimeGyr:   cfg.Units.TimeGyr,
		MassSolar: cfg.Units.MassSolar,
		VelKMS:    cfg.Units.VelocityKMS,
		Winds:     cfg.Channels.Winds,
	}
	if cfg.Channels.RateTable != "" {
		rate, err := events.TableRate(cfg.Channels.RateTable)
		if err != nil {
			return nil, err
		}
		sel.Rate = rate
	}
	if cfg.Channels.Stochastic {
		rng := rand.New(rand.NewSource(cfg.Channels.Seed))
		sel.RandUniform = rng.Float64
	}
	return sel, nil
}
