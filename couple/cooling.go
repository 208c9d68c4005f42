package couple

import (
	"math"

	"github.com/phil-mansfield/gomech"
)

// coolingScales returns the cooling mass (the swept-up mass beyond which the
// injected energy is assumed radiated away) and the terminal velocity, both
// in code units, for ejecta expanding into the medium around rec.
//
// The mass follows a (n z)^(-2/7) power law with floors on density and
// metallicity, clamped above by MaxCoolMass; the terminal velocity scales as
// (n z)^(+1/7) with a floor of half the reference velocity.
func (ctx *evalContext) coolingScales(rec *gomech.Receptor) (mCool, vCool float64) {
	p := ctx.p

	e0 := ctx.esne51
	if ctx.pass < 0 {
		e0 = 1
	}
	if ctx.isSNe {
		e0 += 1
	}

	n0 := rec.Density * p.Units.DensityNH
	if n0 < 0.001 {
		n0 = 0.001
	}

	z0 := 0.0
	if len(rec.Z) > 0 && p.SolarAbundance > 0 {
		z0 = rec.Z[0] / p.SolarAbundance
	}
	if z0 < 0.01 {
		z0 = 0.01
	}
	zTerm := z0
	if z0 < 1 {
		zTerm = z0 * math.Sqrt(z0)
	}

	nz := math.Pow(n0*zTerm, 1.0/7.0)

	vCool = p.CoolRefVelKMS * math.Max(nz, 0.5) / p.Units.VelKMS
	mCool = p.CoolMassCoeff * e0 / (nz * nz)
	if mCool > p.MaxCoolMass {
		mCool = p.MaxCoolMass
	}
	return mCool, vCool
}

// coolRadius converts a cooling mass and ambient density into the cooling
// radius, code length units.
func coolRadius(mCool, density float64) float64 {
	return math.Cbrt(coolMassVolFac * mCool / density)
}
