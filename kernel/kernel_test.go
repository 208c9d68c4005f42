package kernel

import (
	"math"
	"testing"

	plt "github.com/phil-mansfield/pyplot"
	"github.com/stretchr/testify/assert"
)

func TestMainContinuity(t *testing.T) {
	// The two spline branches must agree at q = 1/2 and vanish at q = 1.
	eps := 1e-8
	wLo, dLo := Main(0.5-eps, 1, 1)
	wHi, dHi := Main(0.5+eps, 1, 1)
	assert.InDelta(t, wLo, wHi, 1e-6)
	assert.InDelta(t, dLo, dHi, 1e-6)

	w1, d1 := Main(1, 1, 1)
	assert.InDelta(t, 0, w1, 1e-15)
	assert.InDelta(t, 0, d1, 1e-15)

	w2, d2 := Main(1.5, 1, 1)
	assert.Equal(t, 0.0, w2)
	assert.Equal(t, 0.0, d2)
}

func TestMainCentralValue(t *testing.T) {
	w0, d0 := Main(0, 1, 1)
	assert.InDelta(t, Zero(), w0, 1e-15)
	assert.Equal(t, 0.0, d0)
}

func TestMainNormalization(t *testing.T) {
	// 4 pi int_0^1 W(q) q^2 dq = 1 for h = 1.
	n := 100000
	sum := 0.0
	for i := 0; i < n; i++ {
		q := (float64(i) + 0.5) / float64(n)
		wk, _ := Main(q, 1, 1)
		sum += wk * q * q / float64(n)
	}
	assert.InDelta(t, 1.0, 4*math.Pi*sum, 1e-4)
}

func TestPyplotKernel(t *testing.T) {
	plt.Reset()

	n := 200
	qs := make([]float64, n)
	wks, dwks := make([]float64, n), make([]float64, n)
	for i := range qs {
		qs[i] = float64(i) / float64(n-1)
		wks[i], dwks[i] = Main(qs[i], 1, 1)
	}

	plt.Plot(qs, wks, "b", plt.LW(3))
	plt.Plot(qs, dwks, "r")

	plt.Show()
}

func TestHInv(t *testing.T) {
	hinv, hinv3, hinv4 := HInv(2)
	assert.Equal(t, 0.5, hinv)
	assert.Equal(t, 0.125, hinv3)
	assert.Equal(t, 0.0625, hinv4)
}
