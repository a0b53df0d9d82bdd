package series

import (
	"fmt"
	"math"
	"time"
)

// checkUniform accepts either a constant duration step or a constant calendar-month step,
// which is how monthly and quarterly survey data arrive.
func checkUniform(ts []time.Time) error {
	if len(ts) < 2 {
		return nil
	}
	for i := 1; i < len(ts); i++ {
		if !ts[i].After(ts[i-1]) {
			return fmt.Errorf("timestamps not strictly increasing at index %d", i)
		}
	}
	if uniformDuration(ts) {
		return nil
	}
	if months := monthStep(ts[0], ts[1]); months > 0 {
		for i := 1; i < len(ts); i++ {
			if !ts[i-1].AddDate(0, months, 0).Equal(ts[i]) {
				return fmt.Errorf("irregular sampling at index %d", i)
			}
		}
		return nil
	}
	return fmt.Errorf("irregular sampling: timestamps are not evenly spaced")
}

func uniformDuration(ts []time.Time) bool {
	step := ts[1].Sub(ts[0]).Seconds()
	for i := 2; i < len(ts); i++ {
		d := ts[i].Sub(ts[i-1]).Seconds()
		if math.Abs(d-step) > 1e-6*math.Abs(step) {
			return false
		}
	}
	return true
}

func monthStep(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()-a.Month())
	if months <= 0 || !a.AddDate(0, months, 0).Equal(b) {
		return 0
	}
	return months
}
