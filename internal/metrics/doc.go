// Package metrics records pipeline counters and stage latencies in a
// private Prometheus registry.
//
// PostPilot runs as short CLI invocations, so nothing is scraped. When
// [metrics] textfile is configured the registry is flushed to that path in
// the node_exporter textfile format at the end of every command.
package metrics
