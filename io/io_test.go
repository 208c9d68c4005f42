package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

const minimalConfig = `[Units]
MassSolar = 1e10
VelocityKMS = 1.0
LengthKPC = 1.0
DensityNH = 404.6
TimeGyr = 0.978
`

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := ReadConfig(writeFile(t, "min.config", minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.Coupling.CutoffRadius)
	assert.Equal(t, 1e4, cfg.Coupling.MaxEjectaVelocity)
	assert.Equal(t, 16, cfg.Coupling.Cells)
	assert.Equal(t, 2293.0, cfg.Cooling.MassCoefficient)
	assert.Equal(t, 5382.0, cfg.Cooling.MaxCoolingMass)
	assert.Equal(t, 210.0, cfg.Cooling.ReferenceVelocity)
	assert.False(t, cfg.Cooling.ThermalSuppression)
	assert.False(t, cfg.Channels.Winds)
	assert.Equal(t, 1, cfg.Species.Count)
	assert.Equal(t, 0.02, cfg.Species.SolarAbundance)
}

func TestReadConfigMissingUnits(t *testing.T) {
	text := `[Units]
MassSolar = 1e10
VelocityKMS = 1.0
LengthKPC = 1.0
TimeGyr = 0.978
`
	_, err := ReadConfig(writeFile(t, "bad.config", text))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DensityNH")
}

func TestReadConfigOverrides(t *testing.T) {
	text := minimalConfig + `
[Coupling]
CutoffRadius = 4.0

[Channels]
Winds = true
Stochastic = true
Seed = 7
`
	cfg, err := ReadConfig(writeFile(t, "over.config", text))
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.Coupling.CutoffRadius)
	assert.True(t, cfg.Channels.Winds)

	sel, err := cfg.Selector()
	require.NoError(t, err)
	assert.True(t, sel.Winds)
	require.NotNil(t, sel.RandUniform)
	u := sel.RandUniform()
	assert.GreaterOrEqual(t, u, 0.0)
	assert.Less(t, u, 1.0)
}

func TestExampleConfigFileParses(t *testing.T) {
	cfg, err := ReadConfig(writeFile(t, "example.config", ExampleConfigFile))
	require.NoError(t, err)
	assert.Equal(t, 1e10, cfg.Units.MassSolar)
	assert.Equal(t, 404.6, cfg.Units.DensityNH)
}

func TestParamsUnitConversion(t *testing.T) {
	cfg, err := ReadConfig(writeFile(t, "min.config", minimalConfig))
	require.NoError(t, err)

	p := cfg.Params()
	assert.Equal(t, 2.0, p.CutoffRadius) // LengthKPC = 1
	assert.Equal(t, 1e4, p.MaxEjectaVel) // VelocityKMS = 1
	assert.InDelta(t, 2293.0/1e10, p.CoolMassCoeff, 1e-20)
	assert.InDelta(t, 5382.0/1e10, p.MaxCoolMass, 1e-20)
	assert.Equal(t, 210.0, p.CoolRefVelKMS)
	assert.Greater(t, p.Units.EnergyE51(), 0.0)
}

func TestReadSources(t *testing.T) {
	text := `# id x y z vx vy vz mass hsml num_ngb dens_near t_form dt
1 2.0 3.0 4.0 0.1 0.2 0.3 1.5 0.8 32 0.5 0.25 0.001
2 5.0 6.0 7.0 0.0 0.0 0.0 2.5 1.2 48 0.7 0.50 0.002
`
	srcs, err := ReadSources(writeFile(t, "sources.txt", text))
	require.NoError(t, err)
	require.Len(t, srcs, 2)

	s := &srcs[0]
	assert.Equal(t, int64(1), s.ID)
	assert.Equal(t, [3]float64{2, 3, 4}, [3]float64(s.Pos))
	assert.Equal(t, [3]float64{0.1, 0.2, 0.3}, [3]float64(s.Vel))
	assert.Equal(t, 1.5, s.Mass)
	assert.Equal(t, 0.8, s.Hsml)
	assert.Equal(t, 32.0, s.NumNgb)
	assert.Equal(t, 0.5, s.DensNear)
	assert.Equal(t, 0.25, s.FormationTime)
	assert.Equal(t, 0.001, s.Dt)
}

func TestReadReceptors(t *testing.T) {
	text := `# id x y z vx vy vz mass hsml density energy z0 z1
7 1.0 1.0 1.0 0.0 0.0 0.0 1.0 0.8 0.9 0.1 0.02 0.004
`
	recs, err := ReadReceptors(writeFile(t, "receptors.txt", text), 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := &recs[0]
	assert.Equal(t, int64(7), r.ID)
	assert.Equal(t, 1.0, r.Mass)
	assert.Equal(t, 0.9, r.Density)
	assert.Equal(t, 0.1, r.Energy)
	assert.Equal(t, []float64{0.02, 0.004}, r.Z)
}

func TestReadReceptorsBadSpecies(t *testing.T) {
	_, err := ReadReceptors("unused.txt", 0)
	assert.Error(t, err)
}
