package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies record timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System is the wall clock in UTC.
func System() Clock { return systemClock{} }

var Module = fx.Module("clock", fx.Provide(System))
