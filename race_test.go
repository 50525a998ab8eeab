//go:build race

package untrusted_test

// sync.Pool drops values at random under the race detector.
const raceEnabled = true
