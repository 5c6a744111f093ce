// Package metrics defines the sink interfaces the dispatch engine reports
// to. Sinks like PromSink and InfluxSink (infra/metrics) record trip
// outcomes, route searches and rollbacks, and can be combined with
// NewMultiSink. NewMetricsSink returns a MultiSink automatically when
// multiple sinks are configured.
package metrics
