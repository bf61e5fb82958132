package models

// KalmanFilter is a one-dimensional recursive filter tracking the fair price
// of a single instrument. State persists across bars and is only cleared by
// an explicit Reset.
type KalmanFilter struct {
	estimate         float64
	errCovariance    float64
	seeded           bool
	processNoise     float64
	measurementNoise float64
}

// NewKalmanFilter builds a filter with the given noise parameters.
func NewKalmanFilter(processNoise, measurementNoise float64) *KalmanFilter {
	if processNoise <= 0 {
		processNoise = 0.01
	}
	if measurementNoise <= 0 {
		measurementNoise = 0.1
	}
	return &KalmanFilter{processNoise: processNoise, measurementNoise: measurementNoise}
}

// Update folds a new measurement into the filter and returns the updated
// estimate. The first measurement seeds the state exactly: estimate equals
// the measurement and error covariance equals 1.
func (k *KalmanFilter) Update(measurement float64) float64 {
	if !k.seeded {
		k.estimate = measurement
		k.errCovariance = 1.0
		k.seeded = true
		return k.estimate
	}
	predicted := k.errCovariance + k.processNoise
	gain := predicted / (predicted + k.measurementNoise)
	k.estimate += gain * (measurement - k.estimate)
	k.errCovariance = (1 - gain) * predicted
	return k.estimate
}

// Estimate returns the current estimate and whether the filter is seeded.
func (k *KalmanFilter) Estimate() (float64, bool) {
	return k.estimate, k.seeded
}

// Reset clears the filter so the next measurement reseeds it.
func (k *KalmanFilter) Reset() {
	k.estimate = 0
	k.errCovariance = 0
	k.seeded = false
}
