package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler for the metrics endpoint. Scrapes are
// themselves counted as promhttp_metric_handler_requests_total in the same
// registry, and gathering errors are logged without failing the scrape so
// one broken collector does not hide the packet counters.
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry,
		promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
			EnableOpenMetrics:   true,
			ErrorHandling:       promhttp.ContinueOnError,
			ErrorLog:            scrapeErrorLog{slog.Default().With("component", "metrics")},
			MaxRequestsInFlight: 4,
		}),
	)
}

// scrapeErrorLog adapts slog to promhttp.Logger.
type scrapeErrorLog struct {
	logger *slog.Logger
}

func (l scrapeErrorLog) Println(v ...interface{}) {
	l.logger.Error("metrics scrape error", "error", fmt.Sprint(v...))
}
