// Package metrics defines interfaces for collecting simulation metrics.
// Sinks record a snapshot per tick and may optionally implement recorders
// for charge sessions, drone states and the run summary. Multiple sinks are
// combined with NewMultiSink; the factory helpers do so automatically when
// more than one sink is configured.
package metrics
