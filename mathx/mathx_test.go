package mathx_test

import (
	"math"
	"testing"

	"github.com/qdotlab/matisse/mathx"
)

func TestRoundToThousandths(t *testing.T) {
	cases := []struct {
		in, unit, want float64
	}{
		{0.0004, 0.001, 0},
		{0.0006, 0.001, 0.001},
		{-0.0006, 0.001, -0.001},
		{-0.0004, 0.001, 0},
		{740.1235, 0.001, 740.124},
	}
	for _, c := range cases {
		got := mathx.Round(c.in, c.unit)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Round(%g, %g) = %g, want %g", c.in, c.unit, got, c.want)
		}
	}
}

// A Savitzky-Golay filter of polynomial order p reproduces any polynomial
// of degree <= p exactly, including at the edges.
func TestSavitzkyGolayReproducesCubic(t *testing.T) {
	n := 101
	data := make([]float64, n)
	for i := range data {
		x := float64(i)
		data[i] = 2 + 0.5*x - 0.03*x*x + 0.001*x*x*x
	}
	smoothed, err := mathx.SavitzkyGolay(data, 31, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(smoothed) != n {
		t.Fatalf("expected output length %d, got %d", n, len(smoothed))
	}
	for i := range data {
		if math.Abs(smoothed[i]-data[i]) > 1e-6 {
			t.Fatalf("cubic not reproduced at %d: got %g want %g", i, smoothed[i], data[i])
		}
	}
}

func TestSavitzkyGolaySuppressesNoise(t *testing.T) {
	n := 200
	data := make([]float64, n)
	for i := range data {
		x := float64(i - 100)
		data[i] = -x * x
		if i%2 == 0 {
			data[i] += 50
		} else {
			data[i] -= 50
		}
	}
	smoothed, err := mathx.SavitzkyGolay(data, 31, 3)
	if err != nil {
		t.Fatal(err)
	}
	// the alternating +-50 spikes should be knocked down by better than 5x
	// in the interior
	for i := 20; i < n-20; i++ {
		x := float64(i - 100)
		if math.Abs(smoothed[i]-(-x*x)) > 10 {
			t.Fatalf("residual noise too large at %d: %g", i, smoothed[i]-(-x*x))
		}
	}
}

func TestSavitzkyGolayRejectsBadParams(t *testing.T) {
	data := make([]float64, 50)
	if _, err := mathx.SavitzkyGolay(data, 30, 3); err == nil {
		t.Error("even window accepted")
	}
	if _, err := mathx.SavitzkyGolay(data, 31, 31); err == nil {
		t.Error("polyorder >= window accepted")
	}
	if _, err := mathx.SavitzkyGolay(data, 51, 3); err == nil {
		t.Error("window longer than data accepted")
	}
}

func TestLocalMaximaSinglePeak(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		x := float64(i - 40)
		data[i] = -x * x
	}
	maxima := mathx.LocalMaxima(data, 5)
	if len(maxima) != 1 || maxima[0] != 40 {
		t.Errorf("expected single maximum at 40, got %v", maxima)
	}
	if minima := mathx.LocalMinima(data, 5); len(minima) != 0 {
		t.Errorf("expected no minima on a concave signal, got %v", minima)
	}
}

func TestLocalExtremaNeighborhoodIsStrict(t *testing.T) {
	// plateau: equal neighbors must not qualify
	data := []float64{0, 1, 2, 3, 3, 3, 2, 1, 0, 0, 0, 0, 0}
	if maxima := mathx.LocalMaxima(data, 2); len(maxima) != 0 {
		t.Errorf("plateau produced maxima: %v", maxima)
	}
}

func TestLocalExtremaExcludesEdges(t *testing.T) {
	// monotonic data: the largest value sits at the edge and is not a
	// local maximum
	data := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if maxima := mathx.LocalMaxima(data, 5); len(maxima) != 0 {
		t.Errorf("edge treated as maximum: %v", maxima)
	}
}
