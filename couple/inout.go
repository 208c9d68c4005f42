package couple

import (
	"math"

	"github.com/phil-mansfield/gomech"
	"github.com/phil-mansfield/gomech/geom"
)

// Input is the minimal source state a pass needs. It is the payload exported
// to remote ranks, so it must stay self-contained: nothing here may point
// back into the owning rank's particle arrays.
type Input struct {
	ID       int64
	Pos, Vel geom.Vec
	Hsml     float64
	Vi       float64 // effective volume of the source, (Hsml/NumNgb)^3
	Wt       gomech.WeightVector

	Msne    float64 // ejecta mass for this pass
	VEjecta float64
	Yields  []float64
}

// Active reports whether a source participates in the given pass. The weight
// passes run for any source that will couple through at least one channel.
func Active(s *gomech.Source, pass int) bool {
	if s.Mass <= 0 || s.Hsml <= 0 || s.NumNgb <= 0 {
		return false
	}
	switch {
	case pass < 0:
		return s.EventCount > 0 || s.WindMass > 0
	case pass == ChannelSNe:
		return s.EventCount > 0
	default:
		return s.WindMass > 0
	}
}

// NewInput loads the export payload for one source and pass. During the
// weighting passes the ejecta fields hold sentinel values so the geometry
// can be computed before any event quantities exist; a zero Msne marks a
// source that cannot couple.
func NewInput(s *gomech.Source, pass int) Input {
	heff := s.Hsml / s.NumNgb
	in := Input{
		ID:   s.ID,
		Pos:  s.Pos,
		Vel:  s.Vel,
		Hsml: s.Hsml,
		Vi:   heff * heff * heff,
		Wt:   s.Wt,
	}
	if s.DensNear <= 0 || s.Mass == 0 {
		return in
	}
	switch {
	case pass < 0:
		in.Msne = s.Mass
		in.VEjecta = 1e-4
	case pass == ChannelSNe:
		in.Msne = s.EjectaMass
		in.VEjecta = s.EjectaVel
		in.Yields = s.Yields
	default:
		in.Msne = s.WindMass
		in.VEjecta = s.WindVel
		in.Yields = s.Yields
	}
	return in
}

// Output is the per-source accumulator a pass produces. Partials from
// different owners merge commutatively.
type Output struct {
	Wt               gomech.WeightVector
	MCoupled         float64
	InjectedMomentum float64
}

func (o *Output) Merge(p *Output) {
	o.Wt.Add(&p.Wt)
	o.MCoupled += p.MCoupled
	o.InjectedMomentum += p.InjectedMomentum
}

// ApplyToSource folds a completed pass accumulator back into its source.
// The weight passes fill disjoint slot ranges of the weight vector; the
// couple passes remove the coupled mass and rescale the velocity so the
// mass-loss alone conserves momentum.
func ApplyToSource(pass int, s *gomech.Source, out *Output) {
	switch pass {
	case PassWeightSum:
		for k := gomech.WtTotal; k <= gomech.WtZNeg; k++ {
			s.Wt[k] += out.Wt[k]
		}
	case PassRenormalize:
		for k := gomech.WtKinetic; k <= gomech.WtNorm; k++ {
			s.Wt[k] += out.Wt[k]
		}
	default:
		mInit := s.Mass
		s.Mass -= out.MCoupled
		if s.Mass < 0 || math.IsNaN(s.Mass) {
			s.Mass = 0
		} else if s.Mass > 0 {
			s.Vel.Scale(mInit / s.Mass)
		}
		s.InjectedMomentum += out.InjectedMomentum
	}
}
