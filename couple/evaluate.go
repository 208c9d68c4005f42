package couple

import (
	"math"

	"github.com/phil-mansfield/gomech"
	"github.com/phil-mansfield/gomech/geom"
	"github.com/phil-mansfield/gomech/kernel"
)

// Evaluator runs one coupling pass for a single source against receptors
// owned by the calling rank. Receptors are mutated only during the couple
// passes, and only through the rank that owns them.
type Evaluator struct {
	Params *Params
}

// Evaluate computes the contribution of the receptors at idxs to the
// source's pass accumulator. For the couple passes it also performs the
// conservative injection into those receptors in place.
//
// Every (source, receptor) pair contributes exactly once per pass; callers
// are responsible for not presenting the same receptor twice.
func (ev *Evaluator) Evaluate(
	pass int, in *Input, recs []gomech.Receptor, idxs []int, out *Output,
) {
	if in.Msne <= 0 || in.Hsml <= 0 {
		return
	}
	ctx := ev.newContext(pass, in)
	for _, j := range idxs {
		ctx.pair(&recs[j], out)
	}
}

// evalContext holds the per-source quantities shared by every pair in a
// pass.
type evalContext struct {
	p    *Params
	pass int
	in   *Input

	hinv, hinv3, hinv4 float64
	h2, r2max          float64

	vEj    float64 // capped effective ejecta velocity
	energy float64 // total event energy, code units
	esne51 float64 // same in units of 10^51 erg
	wkNorm float64 // normalization of the scalar weight sum
	isSNe  bool
}

func (ev *Evaluator) newContext(pass int, in *Input) *evalContext {
	p := ev.Params
	ctx := &evalContext{p: p, pass: pass, in: in}

	ctx.hinv, ctx.hinv3, ctx.hinv4 = kernel.HInv(in.Hsml)
	ctx.h2 = in.Hsml * in.Hsml
	ctx.r2max = p.CutoffRadius * p.CutoffRadius

	ctx.vEj = math.Min(in.VEjecta, p.MaxEjectaVel)
	ctx.energy = 0.5 * in.Msne * ctx.vEj * ctx.vEj
	ctx.esne51 = ctx.energy * p.Units.EnergyE51()
	ctx.wkNorm = 1 / (MinReal + math.Abs(in.Wt[gomech.WtTotal]))
	ctx.isSNe = pass == ChannelSNe
	return ctx
}

func (ctx *evalContext) pair(rec *gomech.Receptor, out *Output) {
	if rec.Mass <= 0 {
		return
	}

	dp := geom.Displacement(&ctx.in.Pos, &rec.Pos, ctx.p.TotalWidth)
	r2 := dp.Dot(&dp)
	if r2 <= 0 {
		return // the source itself
	}
	h2j := rec.Hsml * rec.Hsml
	if r2 > ctx.h2 && r2 > h2j {
		return // outside the kernel in both directions
	}
	if r2 > ctx.r2max {
		return // outside the hard physical cutoff
	}
	r := math.Sqrt(r2)

	// Only the kernel derivatives enter the contact area.
	var dwk, dwkJ float64
	if q := r * ctx.hinv; q < 1 {
		_, dwk = kernel.Main(q, ctx.hinv3, ctx.hinv4)
	}
	hinvJ, hinv3J, hinv4J := kernel.HInv(rec.Hsml)
	if qJ := r * hinvJ; qJ < 1 {
		_, dwkJ = kernel.Main(qJ, hinv3J, hinv4J)
	}

	vi := ctx.in.Vi
	if vi < 0 || math.IsNaN(vi) {
		vi = 0
	}
	vj := 0.0
	if rec.Density > 0 {
		vj = rec.Mass / rec.Density
	}
	if vj < 0 || math.IsNaN(vj) {
		vj = 0
	}

	// Effective contact area of the pair, from both kernels, mapped to a
	// bounded solid-angle-like weight in [0, 0.5].
	area := math.Abs(vi*vi*dwk + vj*vj*dwkJ)
	w := 0.5 * (1 - 1/math.Sqrt(1+area/(math.Pi*r2)))
	if w <= 0 || math.IsNaN(w) {
		return
	}

	var wkVec gomech.WeightVector
	wkVec[gomech.WtTotal] = w
	for k := 0; k < 3; k++ {
		if dp[k] > 0 {
			wkVec[2*k+1] = w * dp[k] / r
		} else {
			wkVec[2*k+2] = w * dp[k] / r
		}
	}

	switch ctx.pass {
	case PassWeightSum:
		for k := gomech.WtTotal; k <= gomech.WtZNeg; k++ {
			out.Wt[k] += wkVec[k]
		}
	case PassRenormalize:
		ctx.renormalizePair(rec, &wkVec, out)
	default:
		ctx.couplePair(rec, &wkVec, &dp, r, out)
	}
}

// renormalizePair computes the corrected direction vector for the pair and
// the scalar cross terms needed by the energy bookkeeping of the couple
// passes.
func (ctx *evalContext) renormalizePair(
	rec *gomech.Receptor, wkVec *gomech.WeightVector, out *Output,
) {
	pv, pnorm := directionVector(&ctx.in.Wt, wkVec, ctx.wkNorm)
	if pnorm <= 0 || math.IsNaN(pnorm) {
		return
	}
	_, vCool := ctx.coolingScales(rec)

	var velBa2, cos float64
	for k := 0; k < 3; k++ {
		vba := rec.Vel[k] - ctx.in.Vel[k]
		velBa2 += vba * vba
		cos += vba * pv[k] / pnorm
	}

	out.Wt[gomech.WtKinetic] += wkVec[gomech.WtTotal] * velBa2
	out.Wt[gomech.WtCross] += math.Sqrt(pnorm*rec.Mass) * cos
	out.Wt[gomech.WtCool] += pnorm * cos / vCool
	out.Wt[gomech.WtNorm] += pnorm
}

// couplePair performs the conservative transfer into one receptor. The
// update order is fixed: density, mass, momentum-conserving velocity
// rescale, directed kick, realized-momentum tally, thermal residual,
// species blend. Reordering any of these breaks the conservation
// bookkeeping.
func (ctx *evalContext) couplePair(
	rec *gomech.Receptor, wkVec *gomech.WeightVector, dp *geom.Vec,
	r float64, out *Output,
) {
	pv, pnorm := directionVector(&ctx.in.Wt, wkVec, ctx.wkNorm)
	if pnorm <= 0 || math.IsNaN(pnorm) {
		return
	}

	dm := pnorm * ctx.in.Msne
	if dm <= 0 || math.IsNaN(dm) {
		return
	}

	mCool, _ := ctx.coolingScales(rec)

	mPre := rec.Mass
	velPre := rec.Vel
	massRatio := dm / (dm + mPre)

	// (1) Density rises as if the mass were added at constant particle
	// volume. A receptor with no density yet is seeded with the kernel
	// self-contribution of the arriving mass instead.
	if rec.Density > 0 {
		rec.Density *= 1 + dm/mPre
	} else if rec.Hsml > 0 {
		_, hinv3J, _ := kernel.HInv(rec.Hsml)
		rec.Density = dm * kernel.Zero() * hinv3J
	}

	// (2) Mass.
	rec.Mass += dm
	out.MCoupled += dm

	// (3) Rescale so the mass-only change conserves momentum.
	rec.Vel.Scale(mPre / rec.Mass)

	// (4) Directed kick with the terminal-momentum boost. The boost is the
	// smaller of the cooling limit and the energy-conserving limit.
	boostCool := math.Sqrt(mCool / ctx.in.Msne)
	boostEgy := math.Sqrt(1 + mPre/dm)
	boost := math.Min(boostCool, boostEgy)

	dv := boost * massRatio * ctx.vEj
	rec.Vel.AddScaled(&pv, dv/pnorm)

	// (5) Realized momentum change in the source frame.
	var dpj2 float64
	for k := 0; k < 3; k++ {
		pInit := mPre * (velPre[k] - ctx.in.Vel[k])
		pFin := rec.Mass * (rec.Vel[k] - ctx.in.Vel[k])
		d := pFin - pInit
		dpj2 += d * d
	}
	out.InjectedMomentum += math.Sqrt(dpj2)

	// (6) The residual between this receptor's share of the event energy
	// and the realized kinetic change is added as heat. A negative residual
	// never removes internal energy.
	eInit := pnorm * ctx.energy
	dKE := 0.5 * rec.Mass * dv * dv
	dE := eInit - dKE
	if ctx.p.ThermalSuppression {
		dE = ctx.suppressThermal(rec, dE, eInit, mCool, r)
	}
	if dE > 0 {
		rec.Energy += dE / rec.Mass
	}

	// (7) Species blend by mass fraction.
	for k := 0; k < len(rec.Z) && k < len(ctx.in.Yields); k++ {
		rec.Z[k] = (1-massRatio)*rec.Z[k] + massRatio*ctx.in.Yields[k]
	}

	clampReceptor(rec)
}

// suppressThermal reduces the thermal residual for receptors beyond the
// cooling radius, where the post-shock energy has already radiated away.
// Optional correction; see Params.ThermalSuppression.
func (ctx *evalContext) suppressThermal(
	rec *gomech.Receptor, dE, eInit, mCool, r float64,
) float64 {
	if dE < 0.5*eInit {
		dE = 0.5 * eInit
	}
	rCool := coolRadius(mCool, rec.Density)
	rEff := r - math.Cbrt(rec.Mass/rec.Density)
	if rEff > rCool {
		dE *= (rCool * rCool * rCool) / (rEff * rEff * rEff)
	}
	return dE
}

// clampReceptor enforces the numerical-degenerate policy: a mass, density
// or energy that went negative or NaN is clamped rather than propagated.
func clampReceptor(rec *gomech.Receptor) {
	if rec.Mass < 0 || math.IsNaN(rec.Mass) {
		rec.Mass = 0
	}
	if rec.Density < 0 || math.IsNaN(rec.Density) {
		rec.Density = 0
	}
	if rec.Energy < 0 || math.IsNaN(rec.Energy) {
		rec.Energy = 0
	}
}

// directionVector maps the pair's signed weight components through the
// source's accumulated directional sums, blending opposite-sign axis sums
// by their ratio when both carry weight. This is the anisotropy correction
// that keeps coupling from favoring the denser side of the neighbor
// distribution. It returns the corrected direction and its norm, which is
// the pair's final normalized weight.
func directionVector(
	sum, wkVec *gomech.WeightVector, wkNorm float64,
) (pv geom.Vec, pnorm float64) {
	for k := 0; k < 3; k++ {
		i1, i2 := 2*k+1, 2*k+2
		q := 0.0
		q1, q2 := math.Abs(sum[i1]), math.Abs(sum[i2])
		if q1 > MinReal && q2 > MinReal {
			rr2 := (q2 / q1) * (q2 / q1)
			if wkVec[i1] != 0 {
				q += wkNorm * wkVec[i1] * math.Sqrt(0.5*(1+rr2))
			} else {
				q += wkNorm * wkVec[i2] * math.Sqrt(0.5*(1+1/rr2))
			}
		} else {
			q += wkNorm * (wkVec[i1] + wkVec[i2])
		}
		pv[k] = -q
		pnorm += q * q
	}
	return pv, math.Sqrt(pnorm)
}
