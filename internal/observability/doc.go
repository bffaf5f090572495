// Package observability builds the process logger and the Prometheus
// collectors for access decisions, HTTP traffic, the audit queue and the
// database pool.
package observability
