// Package prometheus exports caseguard engine metrics through client_golang.
//
// [Collector] turns each scrape into const metrics built from the engine
// snapshot: counters are named caseguard_*_total and the authorization latency
// histogram is caseguard_authorize_latency_seconds. Nothing is registered in the
// global registry; callers register the collector themselves or use [Handler].
package prometheus
