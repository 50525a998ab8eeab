//go:build !race

package untrusted_test

const raceEnabled = false
