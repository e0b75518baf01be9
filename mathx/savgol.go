package mathx

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay smooths data by least-squares fitting a polynomial of the
// given order to each window-sized neighborhood and evaluating it at the
// center point.  The window must be odd, larger than the polynomial order,
// and no longer than the data.  Points within half a window of either edge
// are taken from the polynomial fit to the first (last) full window, so
// the output has the same length as the input.
func SavitzkyGolay(data []float64, window, polyorder int) ([]float64, error) {
	n := len(data)
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("savitzky-golay: window must be positive and odd, got %d", window)
	}
	if polyorder >= window {
		return nil, fmt.Errorf("savitzky-golay: polyorder %d must be less than window %d", polyorder, window)
	}
	if window > n {
		return nil, fmt.Errorf("savitzky-golay: window %d exceeds data length %d", window, n)
	}
	proj, err := savgolProjection(window, polyorder)
	if err != nil {
		return nil, err
	}
	half := window / 2
	out := make([]float64, n)
	// interior: slide the center row of the projection along the data
	center := proj.RawRowView(half)
	for i := half; i < n-half; i++ {
		out[i] = dot(center, data[i-half:i+half+1])
	}
	// edges: evaluate the fit to the first/last full window at each offset
	for i := 0; i < half; i++ {
		out[i] = dot(proj.RawRowView(i), data[:window])
		j := n - half + i
		out[j] = dot(proj.RawRowView(window-half+i), data[n-window:])
	}
	return out, nil
}

// savgolProjection returns the window x window matrix that maps samples in
// a window to their fitted values, J (J^T J)^-1 J^T for the Vandermonde
// matrix J of centered offsets.
func savgolProjection(window, polyorder int) (*mat.Dense, error) {
	half := window / 2
	j := mat.NewDense(window, polyorder+1, nil)
	for row := 0; row < window; row++ {
		x := float64(row - half)
		v := 1.0
		for col := 0; col <= polyorder; col++ {
			j.Set(row, col, v)
			v *= x
		}
	}
	var jtj mat.Dense
	jtj.Mul(j.T(), j)
	var inv mat.Dense
	if err := inv.Inverse(&jtj); err != nil {
		return nil, fmt.Errorf("savitzky-golay: normal equations are singular: %v", err)
	}
	var proj mat.Dense
	proj.Product(j, &inv, j.T())
	return &proj, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
