// Package telemetry provides Prometheus metrics and OpenTelemetry spans for
// decoding, applying and relaying typewire frames.
//
// Metrics are registered once per registry and shared by reference:
//
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	sess := session.New(session.WithMetrics(m))
//
// Every recording method accepts a nil receiver, so components can take an
// optional *Metrics without checks.
package telemetry
