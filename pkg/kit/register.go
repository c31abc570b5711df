package kit

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Register adds c to reg. If an identical collector is already registered it
// returns that one instead, so handlers built twice on one registry share their
// metrics. Any other registration error panics, like MustRegister.
func Register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}
