package events

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/table"
	"gonum.org/v1/gonum/interp"
)

// RateFunc is an event rate law: events per Myr per Msun of source mass as
// a function of source age in Gyr.
type RateFunc func(ageGyr float64) float64

// RateFIRE is the standard piecewise rate: two core-collapse plateaus over
// the massive-star lifetime window, then a slowly decaying Ia-like tail.
func RateFIRE(ageGyr float64) float64 {
	ageMyr := ageGyr * 1e3
	switch {
	case ageMyr <= 3.401:
		return 0
	case ageMyr <= 10.37:
		return 5.408e-4
	case ageMyr <= 37.53:
		return 2.516e-4
	default:
		// Prompt + delayed Ia-like component.
		d := (ageMyr - 50) / 10
		return 5.3e-8 + 1.6e-5*math.Exp(-d*d/2)
	}
}

// TableRate builds a rate law from a two column whitespace table of
// (age in Myr, events per Myr per Msun), linearly interpolated and clamped
// to zero outside the tabulated range.
func TableRate(file string) (RateFunc, error) {
	cols, err := table.ReadTable(file, []int{0, 1}, nil)
	if err != nil {
		return nil, err
	}
	ages, rates := cols[0], cols[1]
	if len(ages) < 2 {
		return nil, fmt.Errorf(
			"events: rate table %s needs at least two rows", file,
		)
	}
	for i := 1; i < len(ages); i++ {
		if ages[i] <= ages[i-1] {
			return nil, fmt.Errorf(
				"events: rate table %s ages not increasing at row %d",
				file, i,
			)
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(ages, rates); err != nil {
		return nil, fmt.Errorf("events: rate table %s: %v", file, err)
	}
	lo, hi := ages[0], ages[len(ages)-1]

	return func(ageGyr float64) float64 {
		ageMyr := ageGyr * 1e3
		if ageMyr < lo || ageMyr > hi {
			return 0
		}
		return pl.Predict(ageMyr)
	}, nil
}
