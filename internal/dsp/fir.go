package dsp

import "math"

// lowpass returns a Hamming-windowed sinc low-pass of ntaps taps with cutoff
// at fraction c of the Nyquist frequency, normalized to unit gain at DC.
func lowpass(ntaps int, c float64) []float64 {
	h := make([]float64, ntaps)
	alpha := 0.5 * float64(ntaps-1)
	var sum float64
	for k := range h {
		x := float64(k) - alpha
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(k)/float64(ntaps-1))
		h[k] = c * sinc(c*x) * w
		sum += h[k]
	}
	for k := range h {
		h[k] /= sum
	}
	return h
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// decimate low-pass filters x and keeps every q-th sample, compensating the
// filter's group delay so that output sample j corresponds to input sample
// j*q.
func decimate(x, h []float64, q int) []float64 {
	delay := (len(h) - 1) / 2
	if len(x) <= delay {
		return nil
	}
	n := (len(x)-1-delay)/q + 1
	y := make([]float64, n)
	for j := range y {
		i := delay + j*q
		var acc float64
		for k, b := range h {
			if i-k < 0 {
				break
			}
			acc += b * x[i-k]
		}
		y[j] = acc
	}
	return y
}
