/*package geom contains the small amount of vector geometry needed by the
coupling engine.
*/
package geom

import (
	"math"
)

// Vec is a three dimensional vector.
type Vec [3]float64

func (v *Vec) Dot(u *Vec) float64 {
	return v[0]*u[0] + v[1]*u[1] + v[2]*u[2]
}

func (v *Vec) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// AddScaled adds s * u to v in place.
func (v *Vec) AddScaled(u *Vec, s float64) {
	for i := 0; i < 3; i++ {
		v[i] += s * u[i]
	}
}

// Scale multiplies v by s in place.
func (v *Vec) Scale(s float64) {
	for i := 0; i < 3; i++ {
		v[i] *= s
	}
}

func wrapDist(x1, x2, tw float64) float64 {
	d := x1 - x2
	if d > tw/2 {
		d -= tw
	} else if d < -tw/2 {
		d += tw
	}
	return d
}

// Displacement returns the signed displacement p1 - p2 under the nearest
// periodic image convention for a box of the given total width. A width of
// zero disables wrapping.
func Displacement(p1, p2 *Vec, tw float64) Vec {
	if tw <= 0 {
		return Vec{p1[0] - p2[0], p1[1] - p2[1], p1[2] - p2[2]}
	}
	return Vec{
		wrapDist(p1[0], p2[0], tw),
		wrapDist(p1[1], p2[1], tw),
		wrapDist(p1[2], p2[2], tw),
	}
}

// Wrap maps x into [0, tw).
func Wrap(x, tw float64) float64 {
	if tw <= 0 {
		return x
	}
	x = math.Mod(x, tw)
	if x < 0 {
		x += tw
	}
	return x
}
