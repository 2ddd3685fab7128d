package dsp

import (
	"math"
	"math/rand"
)

// Power returns the mean square of x.
func Power(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return sum / float64(len(x))
}

// AddNoise adds white Gaussian noise to x so that the ratio of signalPower
// to the noise power equals snrDB.
func AddNoise(x []float32, signalPower, snrDB float64, rng *rand.Rand) {
	sigma := math.Sqrt(signalPower / math.Pow(10, snrDB/10))
	for i := range x {
		x[i] += float32(sigma * rng.NormFloat64())
	}
}
