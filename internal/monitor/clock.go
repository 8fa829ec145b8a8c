package monitor

import "time"

// Clock abstracts wall-clock reads so tests can control "now" instead of
// racing the real clock. The engine never calls time.Now() directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production Clock backed by the real wall clock.
var SystemClock Clock = systemClock{}
