package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetricsFileFrom dumps g in text exposition format, for pickup by a
// node_exporter textfile collector. The file is replaced atomically.
func WriteMetricsFileFrom(path string, g prometheus.Gatherer) error {
	if path == "" {
		return fmt.Errorf("metrics file path is empty")
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
