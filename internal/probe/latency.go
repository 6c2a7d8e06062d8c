package probe

import (
	"math"
	"time"
)

// ceilEpsilon absorbs float noise so 0.30s is not reported as 0.4s.
const ceilEpsilon = 1e-9

// CeilTenth rounds seconds up to one decimal place. Negative input reports 0.
func CeilTenth(seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Ceil(seconds*10-ceilEpsilon) / 10
}

// LoadTime converts an elapsed duration into reported seconds.
func LoadTime(elapsed time.Duration) float64 {
	return CeilTenth(elapsed.Seconds())
}
