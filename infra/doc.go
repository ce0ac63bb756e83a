// Package infra holds the adapters around the dispatcher: the in-process
// traffic backend, the MQTT annotator, metric sinks and error monitoring.
// They depend only on the interfaces of the core packages.
package infra
