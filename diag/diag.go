/*package diag reduces per-rank step statistics into a single record per step
and renders the running log and CSV telemetry.

Reduction is commutative, so partial accumulators can be merged in whatever
order the ranks finish.
*/
package diag

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/gomech/events"
)

// Accumulator collects the per-step totals of one rank, or of any merged set
// of ranks. The zero value is ready to use.
type Accumulator struct {
	Time float64

	Possible float64 // sources that could have hosted an event
	Hosts    float64 // sources that did
	Events   float64

	MomentumBudget   float64 // probable terminal momentum, Msun km/s
	CoupledMass      float64 // mass actually transferred this step
	InjectedMomentum float64 // source-frame momentum actually realized

	Dts   []float64
	Rates []float64
}

// AddPopulation folds a rank's selection statistics into the accumulator.
func (a *Accumulator) AddPopulation(p *events.Population) {
	a.Possible += p.Possible
	a.Hosts += p.Hosts
	a.Events += p.Events
	a.MomentumBudget += p.Momentum
	a.Dts = append(a.Dts, p.Dts...)
	a.Rates = append(a.Rates, p.Rates...)
}

// Reduce merges b into a. Merging is commutative up to the order of the
// sample slices, which only ever feed means.
func (a *Accumulator) Reduce(b *Accumulator) {
	a.Possible += b.Possible
	a.Hosts += b.Hosts
	a.Events += b.Events
	a.MomentumBudget += b.MomentumBudget
	a.CoupledMass += b.CoupledMass
	a.InjectedMomentum += b.InjectedMomentum
	a.Dts = append(a.Dts, b.Dts...)
	a.Rates = append(a.Rates, b.Rates...)
}

// Record is one finished step of telemetry.
type Record struct {
	Time             float64 `csv:"time"`
	Possible         float64 `csv:"n_possible"`
	Hosts            float64 `csv:"n_host"`
	Events           float64 `csv:"n_total"`
	MomentumBudget   float64 `csv:"p_total"`
	DtMean           float64 `csv:"dt_mean"`
	RateMean         float64 `csv:"rate_mean"`
	CoupledMass      float64 `csv:"m_coupled"`
	InjectedMomentum float64 `csv:"p_injected"`
}

// Record freezes the accumulator into a telemetry record. The means are over
// every source that could have hosted an event, not only the actual hosts.
func (a *Accumulator) Record() Record {
	rec := Record{
		Time:             a.Time,
		Possible:         a.Possible,
		Hosts:            a.Hosts,
		Events:           a.Events,
		MomentumBudget:   a.MomentumBudget,
		CoupledMass:      a.CoupledMass,
		InjectedMomentum: a.InjectedMomentum,
	}
	if len(a.Dts) > 0 {
		rec.DtMean = stat.Mean(a.Dts, nil)
	}
	if len(a.Rates) > 0 {
		rec.RateMean = stat.Mean(a.Rates, nil)
	}
	return rec
}

// Line renders the record in the historical single-line log format, with the
// field order fixed for downstream scrapers.
func (r *Record) Line() string {
	return fmt.Sprintf(
		"events: time=%.6g n_possible=%.0f n_host=%.0f n_total=%.0f "+
			"p_total=%.6g dt_mean=%.6g rate_mean=%.6g",
		r.Time, r.Possible, r.Hosts, r.Events,
		r.MomentumBudget, r.DtMean, r.RateMean,
	)
}

// WriteCSV writes one header line followed by every record.
func WriteCSV(w io.Writer, recs []Record) error {
	if err := gocsv.Marshal(&recs, w); err != nil {
		return fmt.Errorf("diag: writing telemetry: %w", err)
	}
	return nil
}
