// Package observability provides the zap logger constructor and the
// Prometheus collectors used across the analysis pipeline.
package observability
