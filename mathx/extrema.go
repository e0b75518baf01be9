package mathx

// LocalMaxima returns the indices of samples that are strictly greater
// than every sample within order points on either side.  Samples closer
// than order points to either end of the data never qualify.
func LocalMaxima(data []float64, order int) []int {
	return relExtrema(data, order, func(a, b float64) bool { return a > b })
}

// LocalMinima is LocalMaxima with the comparison inverted.
func LocalMinima(data []float64, order int) []int {
	return relExtrema(data, order, func(a, b float64) bool { return a < b })
}

func relExtrema(data []float64, order int, wins func(a, b float64) bool) []int {
	var idxs []int
	for i := order; i < len(data)-order; i++ {
		ok := true
		for j := i - order; j <= i+order; j++ {
			if j == i {
				continue
			}
			if !wins(data[i], data[j]) {
				ok = false
				break
			}
		}
		if ok {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
