// Package prometheus provides Prometheus collectors for stampauth metrics.
//
// [NewPrometheusExporter] accepts a [stampauth.Engine] and exposes an [http.Handler]
// that renders all stampauth counters and histograms in Prometheus text exposition
// format. Counter names are prefixed stampauth_*_total; the single histogram is
// stampauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
