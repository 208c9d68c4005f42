/*package kernel evaluates the cubic spline smoothing kernel and its radial
derivative. These are pure functions with no state.

The kernel is the standard 3D cubic spline,
	W(q) = 8/pi * (1 - 6q^2 + 6q^3)  for q <= 1/2
	W(q) = 16/pi * (1 - q)^3         for 1/2 < q <= 1
	W(q) = 0                         otherwise
with q = r/h. Main returns W scaled by 1/h^3 and dW/dr scaled by 1/h^4,
matching the hinv3/hinv4 convention used throughout the engine.
*/
package kernel

const (
	norm1 = 8.0 / 3.14159265358979323846  // 8/pi
	norm2 = 16.0 / 3.14159265358979323846 // 16/pi
)

// HInv returns 1/h and its third and fourth powers.
func HInv(h float64) (hinv, hinv3, hinv4 float64) {
	hinv = 1 / h
	hinv3 = hinv * hinv * hinv
	hinv4 = hinv3 * hinv
	return hinv, hinv3, hinv4
}

// Main evaluates the kernel at q = r/h. hinv3 and hinv4 are the volume and
// gradient normalizations from HInv. Outside q = 1 both returns are zero.
func Main(q, hinv3, hinv4 float64) (wk, dwk float64) {
	switch {
	case q < 0:
		return 0, 0
	case q <= 0.5:
		wk = norm1 * (1 + 6*q*q*(q-1))
		dwk = norm1 * (18*q - 12) * q
	case q <= 1:
		d := 1 - q
		wk = norm2 * d * d * d
		dwk = -3 * norm2 * d * d
	default:
		return 0, 0
	}
	return wk * hinv3, dwk * hinv4
}

// Zero is the dimensionless central value W(0) before the 1/h^3 scaling.
// It seeds the density of a receptor whose density is undefined.
func Zero() float64 {
	return norm1
}
