package flowedit

import (
	"log/slog"
	"math/rand/v2"

	"github.com/randalmurphal/flowedit/pkg/flowedit/event"
	"github.com/randalmurphal/flowedit/pkg/flowedit/observability"
)

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger. Rejected mutations are logged at WARN.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBus publishes an event for every successful mutation.
func WithBus(bus event.Publisher) Option {
	return func(e *Editor) {
		e.bus = bus
	}
}

// WithMetrics sets the metrics recorder. Default: observability.NoopMetrics{}
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Editor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithPlacement sets the function choosing where new nodes appear.
// Default: uniformly random inside a 400x400 square.
func WithPlacement(place func() Position) Option {
	return func(e *Editor) {
		if place != nil {
			e.place = place
		}
	}
}

// WithFlow starts the editor on an existing flow instead of an empty one.
func WithFlow(f *Flow) Option {
	return func(e *Editor) {
		if f != nil {
			e.flow = f.Clone()
		}
	}
}

func randomPlacement() Position {
	return Position{X: rand.Float64() * 400, Y: rand.Float64() * 400}
}
