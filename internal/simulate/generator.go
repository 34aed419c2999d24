package simulate

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const randomFloatDivisor = 1000000

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIntn(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// shakePayload builds the n-th shake of a controller. Intensity is sent as a
// string half of the time, the way browsers that stringify sensor values do.
func shakePayload(n int, now time.Time) map[string]any {
	intensity := 1 + randomIntn(maxIntensity)
	var wireIntensity any = intensity
	if randomIntn(2) == 0 {
		wireIntensity = strconv.FormatInt(intensity, 10)
	}
	return map[string]any{
		"timestamp":    now.UnixMilli(),
		"intensity":    wireIntensity,
		"acceleration": accelerationMin + getRandomFloat()*accelerationRange,
		"x":            axis(),
		"y":            axis(),
		"z":            axis(),
		"shakeNumber":  n,
	}
}

// motionPayload returns a motion sample and whether a default relay would
// forward it. Roughly half of the samples are vigorous.
func motionPayload() (map[string]any, bool) {
	total := getRandomFloat() * calmMotionMax
	if randomIntn(2) == 0 {
		total = vigorousMotionMin + getRandomFloat()*vigorousRange
	}
	return map[string]any{
		"totalAcceleration": total,
		"x":                 axis(),
		"y":                 axis(),
		"z":                 axis(),
	}, total > motionThreshold
}

func axis() float64 {
	return (getRandomFloat()*2 - 1) * axisRange
}
