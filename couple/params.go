/*package couple implements the physics of conservative neighbor coupling:
the anisotropic weighting passes and the mass/momentum/energy injection pass.

A step runs three ordered passes for every active source. PassWeightSum
accumulates kernel-derived directional weights over all neighbors,
PassRenormalize turns those sums into normalized direction vectors and
energy cross terms, and the couple passes (one per physical channel) perform
the actual conservative transfer. The same per-neighbor evaluation runs
whether the source is local or imported from another rank, so the two code
paths cannot diverge.
*/
package couple

// Pass identifiers. WeightSum and Renormalize must complete, in order,
// before any couple pass runs for a source. Couple passes are numbered by
// physical channel starting at zero.
const (
	PassWeightSum   = -2
	PassRenormalize = -1
	ChannelSNe      = 0 // discrete explosive events
	ChannelWinds    = 1 // continuous mass loss
)

// MinReal guards divisions by weight sums that may underflow to zero.
const MinReal = 1e-37

// Units holds the conversion factors from code units to the physical units
// the cooling physics is calibrated in.
type Units struct {
	MassSolar float64 // code mass in Msun
	VelKMS    float64 // code velocity in km/s
	LengthKPC float64 // code length in kpc
	DensityNH float64 // code density in hydrogen atoms / cm^3
	TimeGyr   float64 // code time in Gyr
}

const (
	solarMassGram = 1.989e33
	kmsCGS        = 1e5
)

// EnergyE51 returns the factor converting code energy (code mass times code
// velocity squared) into units of 10^51 erg.
func (u *Units) EnergyE51() float64 {
	return u.MassSolar * solarMassGram * (u.VelKMS * kmsCGS) *
		(u.VelKMS * kmsCGS) / 1e51
}

// Params collects the configuration the coupling passes consume. All
// dimensional fields are in code units; the io package converts from the
// physical units used in configuration files.
type Params struct {
	Units Units

	// TotalWidth of the periodic domain; zero disables wrapping.
	TotalWidth float64

	// CutoffRadius is the hard physical limit on coupling range. Neighbors
	// beyond it receive nothing regardless of kernel extent.
	CutoffRadius float64

	// MaxEjectaVel caps the effective ejecta velocity.
	MaxEjectaVel float64

	// CoolMassCoeff scales the cooling mass power law and MaxCoolMass
	// clamps it.
	CoolMassCoeff float64
	MaxCoolMass   float64

	// CoolRefVelKMS is the terminal velocity scale, km/s.
	CoolRefVelKMS float64

	// SolarAbundance normalizes the receptor metallicity.
	SolarAbundance float64

	// ThermalSuppression enables the distance-dependent reduction of the
	// thermal residual beyond the cooling radius. Off by default.
	ThermalSuppression bool

	NumSpecies int
}

// coolMassVolFac converts a cooling mass over an ambient density into the
// cube of the cooling radius.
const coolMassVolFac = 0.238732
