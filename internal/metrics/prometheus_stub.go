//go:build noprom

package metrics

// enablePrometheus is a no-op in builds without the Prometheus exporter.
func enablePrometheus(addr string) error { return nil }
