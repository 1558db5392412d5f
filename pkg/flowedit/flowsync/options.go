package flowsync

import (
	"log/slog"

	"github.com/randalmurphal/flowedit/pkg/flowedit/event"
	"github.com/randalmurphal/flowedit/pkg/flowedit/observability"
)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Synchronizer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for loads and saves.
func WithTracing() Option {
	return func(s *Synchronizer) {
		s.spans = observability.NewSpanManager()
	}
}

// WithSpanManager sets the span manager. Default: NoopSpanManager.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(s *Synchronizer) {
		if sm != nil {
			s.spans = sm
		}
	}
}

// WithBus publishes flow.saved and flow.load_failed events to bus.
func WithBus(bus event.Publisher) Option {
	return func(s *Synchronizer) {
		s.bus = bus
	}
}

// OnStateChange registers fn to be called on every load state transition.
// fn runs while the synchronizer's lock is held and must not call back
// into it.
func OnStateChange(fn func(from, to State)) Option {
	return func(s *Synchronizer) {
		s.onState = fn
	}
}
