package events

// ClusterGenerator is a deterministic stand-in for an external population
// synthesis code. It schedules a fixed budget of events uniformly across the
// massive-star lifetime window and retires itself once the budget is spent.
//
// It exists so the engine's delegation path (advance at most once per step,
// retire on exhaustion) can be exercised without linking a real population
// code; external packages satisfying Generator slot in the same way.
type ClusterGenerator struct {
	times   []float64 // event ages in years, ascending
	yields  []float64
	next    int
	lastAge float64
	ejSolar float64
}

// NewClusterGenerator schedules n events between the given ages (years).
// yields may be nil.
func NewClusterGenerator(
	n int, startYr, endYr, ejectaMassSolar float64, yields []float64,
) *ClusterGenerator {
	times := make([]float64, n)
	for i := range times {
		f := (float64(i) + 0.5) / float64(n)
		times[i] = startYr + f*(endYr-startYr)
	}
	return &ClusterGenerator{times: times, yields: yields,
		ejSolar: ejectaMassSolar}
}

// Advance returns the events that occurred since the previous call. Calling
// with a non-increasing age returns nothing.
func (g *ClusterGenerator) Advance(ageYr float64) (float64, float64, []float64) {
	if ageYr <= g.lastAge {
		return 0, 0, nil
	}
	g.lastAge = ageYr

	n := 0.0
	for g.next < len(g.times) && g.times[g.next] <= ageYr {
		g.next++
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return n, n * g.ejSolar, g.yields
}

func (g *ClusterGenerator) Exhausted() bool {
	return g.next >= len(g.times)
}
