// Package prometheus renders engine metrics in Prometheus text exposition format.
//
// [NewExporter] accepts an [authkit.Engine] and exposes an [net/http.Handler] that
// renders every counter and histogram. Counter names are prefixed authkit_*_total;
// the single histogram is authkit_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
