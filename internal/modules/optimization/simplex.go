package optimization

// projectCappedSimplex computes the Euclidean projection of v onto
// { w : sum(w) = 1, lb[i] <= w[i] <= ub[i] }.
//
// The projection is clip(v - tau, lb, ub) for the unique shift tau that
// makes the coordinates sum to one; tau is found by bisection on the
// monotonically decreasing map tau -> sum(clip(v - tau, lb, ub)).
// Bounds must describe a non-empty region (sum(lb) <= 1 <= sum(ub)).
func projectCappedSimplex(v, lb, ub []float64) []float64 {
	n := len(v)

	lo, hi := v[0]-ub[0], v[0]-lb[0]
	for i := 1; i < n; i++ {
		if v[i]-ub[i] < lo {
			lo = v[i] - ub[i]
		}
		if v[i]-lb[i] > hi {
			hi = v[i] - lb[i]
		}
	}
	// widen so the root is strictly bracketed
	lo -= 1
	hi += 1

	sumAt := func(tau float64) float64 {
		total := 0.0
		for i := 0; i < n; i++ {
			w := v[i] - tau
			if w < lb[i] {
				w = lb[i]
			} else if w > ub[i] {
				w = ub[i]
			}
			total += w
		}
		return total
	}

	for iter := 0; iter < 100; iter++ {
		mid := (lo + hi) / 2
		if sumAt(mid) > 1 {
			lo = mid
		} else {
			hi = mid
		}
	}

	tau := (lo + hi) / 2
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = v[i] - tau
		if w[i] < lb[i] {
			w[i] = lb[i]
		} else if w[i] > ub[i] {
			w[i] = ub[i]
		}
	}
	return w
}
