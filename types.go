package gomech

import (
	"github.com/phil-mansfield/gomech/geom"
)

// WeightSlots is the length of a source's directional weight accumulator.
const WeightSlots = 11

// Slot indices into a WeightVector. Slots 0 - 6 are filled by the
// weight-sum pass, slots 7 - 10 by the renormalization pass.
const (
	WtTotal = iota // scalar weight sum over all neighbors
	WtXPos         // signed directional partial sums, split by axis sign
	WtXNeg
	WtYPos
	WtYNeg
	WtZPos
	WtZNeg
	WtKinetic // residual relative kinetic energy term
	WtCross   // momentum-energy cross term
	WtCool    // cooling-limited cross term
	WtNorm    // normalization sum of per-neighbor direction norms
)

// WeightVector accumulates anisotropic coupling weights for a single source
// over all its neighbors. Contributions from different owners are summed,
// never overwritten, so merging is commutative.
type WeightVector [WeightSlots]float64

func (w *WeightVector) Zero() {
	for i := range w {
		w[i] = 0
	}
}

func (w *WeightVector) Add(u *WeightVector) {
	for i := range w {
		w[i] += u[i]
	}
}

// Source is a point particle capable of emitting discrete feedback events.
type Source struct {
	Pos, Vel geom.Vec
	Mass     float64
	Hsml     float64 // smoothing scale
	NumNgb   float64 // effective neighbor count within Hsml
	DensNear float64 // local density around the source

	FormationTime float64 // code units; age = time - FormationTime
	Dt            float64 // timestep assigned by the surrounding integrator

	// Per-step event state, set by the event selector and consumed by the
	// coupling passes.
	EventCount  float64 // discrete events this step
	EventsTotal float64 // cumulative over the source's life
	EjectaMass  float64
	EjectaVel   float64
	WindMass    float64 // continuous channel: mass shed this step
	WindVel     float64
	Yields      []float64 // per-species ejecta mass fractions

	// InjectedMomentum is the magnitude of momentum actually delivered to
	// neighbors during the most recent coupling pass.
	InjectedMomentum float64

	Wt WeightVector

	ID int64
}

// Receptor is a continuum particle eligible to receive coupled mass,
// momentum and energy. Only the rank that owns a receptor may mutate it.
type Receptor struct {
	Pos, Vel geom.Vec
	Mass     float64
	Hsml     float64
	Density  float64
	Energy   float64 // specific internal energy
	Z        []float64

	ID int64
}
