package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
)

// WriteTextfile writes the metrics gathered from g to path in the Prometheus
// text exposition format, suitable for the node exporter textfile collector.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := prom.WriteToTextfile(path, g); err != nil {
		return perrors.FileSystemError("write metrics", path, err)
	}
	return nil
}
