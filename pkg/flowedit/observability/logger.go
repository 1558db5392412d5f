// Package observability provides logging, metrics and tracing for flowedit.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns logger with the flow_id field attached.
func EnrichLogger(logger *slog.Logger, flowID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("flow_id", flowID))
}

// LogLoadStart logs the start of a flow load.
func LogLoadStart(logger *slog.Logger, flowID string, generation uint64) {
	if logger == nil {
		return
	}
	logger.Debug("flow load starting",
		slog.String("flow_id", flowID),
		slog.Uint64("generation", generation),
	)
}

// LogLoadComplete logs a load that replaced the model.
func LogLoadComplete(logger *slog.Logger, flowID string, durationMs float64, nodes, edges int) {
	if logger == nil {
		return
	}
	logger.Info("flow loaded",
		slog.String("flow_id", flowID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes", nodes),
		slog.Int("edges", edges),
	)
}

// LogLoadError logs a failed load. The model is left untouched.
func LogLoadError(logger *slog.Logger, flowID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("flow load failed",
		slog.String("flow_id", flowID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogLoadDiscarded logs a load response that arrived after the governing
// identifier moved on.
func LogLoadDiscarded(logger *slog.Logger, flowID, governingID string) {
	if logger == nil {
		return
	}
	logger.Warn("stale flow load discarded",
		slog.String("flow_id", flowID),
		slog.String("governing_id", governingID),
	)
}

// LogSaveComplete logs a successful save.
func LogSaveComplete(logger *slog.Logger, flowID string, durationMs float64, created bool) {
	if logger == nil {
		return
	}
	logger.Info("flow saved",
		slog.String("flow_id", flowID),
		slog.Float64("duration_ms", durationMs),
		slog.Bool("created", created),
	)
}

// LogSaveError logs a failed save.
func LogSaveError(logger *slog.Logger, flowID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("flow save failed",
		slog.String("flow_id", flowID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogMutationError logs a rejected mutation. These indicate the surface
// and the model disagree about which nodes exist.
func LogMutationError(logger *slog.Logger, op, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("mutation rejected",
		slog.String("op", op),
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
