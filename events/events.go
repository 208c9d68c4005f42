/*package events decides which sources emit feedback during a step and how
much mass, energy and momentum an event releases.

Selection either computes expected event counts from a rate law or delegates
to an external Generator that owns long-lived per-source state (a population
synthesis code, for example). A Generator is advanced at most once per step
per source and is retired once it reports exhaustion.
*/
package events

import (
	"math"

	"github.com/phil-mansfield/gomech"
)

// Fiducial per-event ejecta properties in physical units.
const (
	EjectaMassSolar = 10.4 // mean ejecta mass per event, Msun
	EnergyPerEvent  = 1e51 // erg
)

// Generator owns the stochastic event history of a single source. Advance
// reports the events and ejecta released between the previous call and the
// given age; Exhausted reports that no further events are possible, at which
// point the selector retires the generator.
type Generator interface {
	Advance(ageYr float64) (events, ejectaMassSolar float64, yields []float64)
	Exhausted() bool
}

// Population collects the per-rank selection statistics that are reduced
// into the step diagnostics.
type Population struct {
	Possible float64 // sources that could have hosted an event
	Hosts    float64 // sources with at least one actual event
	Events   float64
	Momentum float64 // total momentum budget, Msun km/s

	Dts   []float64 // timestep of every possible host
	Rates []float64 // event rate of every possible host
}

func (p *Population) Add(q *Population) {
	p.Possible += q.Possible
	p.Hosts += q.Hosts
	p.Events += q.Events
	p.Momentum += q.Momentum
	p.Dts = append(p.Dts, q.Dts...)
	p.Rates = append(p.Rates, q.Rates...)
}

// Selector determines per-step event counts and ejecta quantities for the
// sources a rank owns. Side effects are confined to the sources' own fields.
type Selector struct {
	// Rate is the event rate law, events per Myr per Msun as a function of
	// age in Gyr. Defaults to RateFIRE.
	Rate RateFunc

	// TimeGyr and MassSolar convert code time and mass into physical units.
	TimeGyr   float64
	MassSolar float64
	VelKMS    float64

	// Winds enables the continuous mass-loss channel.
	Winds bool

	// RandUniform supplies uniform variates in [0, 1) for the stochastic
	// part of the event draw. Nil means fully deterministic selection:
	// events fire only when the expectation crosses an integer.
	RandUniform func() float64

	// Generators maps source IDs to external event generators. Optional.
	Generators map[int64]Generator
}

// Select updates the per-step event state of every source and returns the
// rank-local population statistics. time is the current code-unit time.
//
// A source with non-positive mass, timestep or age can never emit and is
// skipped without error. An event count of zero is a normal outcome.
func (sel *Selector) Select(time float64, srcs []gomech.Source) Population {
	var pop Population
	rate := sel.Rate
	if rate == nil {
		rate = RateFIRE
	}

	for i := range srcs {
		s := &srcs[i]
		s.EventCount = 0
		s.EjectaMass = 0
		s.EjectaVel = 0
		s.WindMass = 0
		s.WindVel = 0

		if s.Mass <= 0 || s.Dt <= 0 {
			continue
		}
		ageGyr := (time - s.FormationTime) * sel.TimeGyr
		if ageGyr <= 0 || math.IsNaN(ageGyr) {
			continue
		}
		pop.Possible++

		dtMyr := s.Dt * sel.TimeGyr * 1e3
		massSolar := s.Mass * sel.MassSolar

		if gen, ok := sel.generator(s.ID); ok {
			// External generators are advanced exactly once per step.
			n, mejSolar, yields := gen.Advance(ageGyr * 1e9)
			s.EventCount = n
			s.EjectaMass = mejSolar / sel.MassSolar
			if yields != nil {
				s.Yields = yields
			}
			if gen.Exhausted() {
				delete(sel.Generators, s.ID)
			}
			pop.Rates = append(pop.Rates, 0)
		} else {
			r := rate(ageGyr) // events / Myr / Msun
			s.EventCount = sel.drawEvents(r * massSolar * dtMyr)
			s.EjectaMass = s.EventCount * EjectaMassSolar / sel.MassSolar
			pop.Momentum += momentumBudget(r, massSolar, dtMyr)
			pop.Rates = append(pop.Rates, r)
		}
		pop.Dts = append(pop.Dts, s.Dt)

		if s.EventCount > 0 {
			s.EjectaVel = ejectaVelocity(s.EventCount, s.EjectaMass,
				sel.MassSolar, sel.VelKMS)
			s.EventsTotal += s.EventCount
			pop.Hosts++
			pop.Events += s.EventCount
		}

		if sel.Winds {
			sel.selectWind(s, ageGyr, dtMyr)
		}
	}
	return pop
}

func (sel *Selector) generator(id int64) (Generator, bool) {
	if sel.Generators == nil {
		return nil, false
	}
	gen, ok := sel.Generators[id]
	return gen, ok
}

// drawEvents converts the expected event count for this step into a whole
// number of events. With an RNG the fractional part fires stochastically;
// without one selection is deterministic.
func (sel *Selector) drawEvents(mean float64) float64 {
	n := math.Floor(mean)
	if sel.RandUniform != nil && sel.RandUniform() < mean-n {
		n++
	}
	return n
}

// momentumBudget is the probable terminal momentum released this step,
// in Msun km/s, used only for diagnostics.
func momentumBudget(rate, massSolar, dtMyr float64) float64 {
	return rate * massSolar * dtMyr * terminalMomentumKMS
}

// terminalMomentumKMS is the fiducial terminal momentum per event divided by
// the ejecta mass, km/s.
const terminalMomentumKMS = 3.1939e5 / EjectaMassSolar

// ejectaVelocity returns the code-unit ejecta velocity implied by the event
// energy budget, sqrt(2 N E_51 / M_ej).
func ejectaVelocity(n, mejCode, massSolar, velKMS float64) float64 {
	if mejCode <= 0 {
		return 0
	}
	mejGram := mejCode * massSolar * solarMassGram
	vCGS := math.Sqrt(2 * n * EnergyPerEvent / mejGram)
	return vCGS / 1e5 / velKMS
}

const solarMassGram = 1.989e33

// selectWind assigns the continuous channel mass loss for one step. The
// rate is a two-regime fit: fast line-driven winds while the massive stars
// live, then a slow AGB tail.
func (sel *Selector) selectWind(s *gomech.Source, ageGyr, dtMyr float64) {
	ageMyr := ageGyr * 1e3
	var rate, vKMS float64 // rate: fraction of stellar mass per Myr
	switch {
	case ageMyr <= 0:
		return
	case ageMyr < 100:
		rate, vKMS = 9.0e-5, 600
	default:
		rate, vKMS = 3.0e-6, 30
	}
	s.WindMass = rate * dtMyr * s.Mass
	s.WindVel = vKMS / sel.VelKMS
}
