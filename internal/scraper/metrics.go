package scraper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scrapeDatesTotal      *prometheus.CounterVec
	scrapeProductsTotal   *prometheus.CounterVec
	sinkDeliveriesTotal   *prometheus.CounterVec
	listRetriesTotal      prometheus.Counter
	detailFetchesInFlight prometheus.Gauge

	metricsOnce sync.Once
)

// InitMetrics registers the Prometheus collectors for the scraper.
// Safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		scrapeDatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_dates_total",
				Help: "Dates processed, labeled by outcome (completed or skipped).",
			},
			[]string{"outcome"},
		)

		scrapeProductsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_products_total",
				Help: "Product detail fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		sinkDeliveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_sink_deliveries_total",
				Help: "Record deliveries, labeled by sink and outcome.",
			},
			[]string{"sink", "outcome"},
		)

		listRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_list_retries_total",
				Help: "Leaderboard list fetch retries.",
			},
		)

		detailFetchesInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_detail_fetches_in_flight",
				Help: "Detail fetch tasks currently holding a gate permit.",
			},
		)
	})
}

func observeDate(outcome string) {
	if scrapeDatesTotal != nil {
		scrapeDatesTotal.WithLabelValues(outcome).Inc()
	}
}

func observeProduct(outcome string) {
	if scrapeProductsTotal != nil {
		scrapeProductsTotal.WithLabelValues(outcome).Inc()
	}
}

func observeDelivery(sink, outcome string) {
	if sinkDeliveriesTotal != nil {
		sinkDeliveriesTotal.WithLabelValues(sink, outcome).Inc()
	}
}

func observeListRetry() {
	if listRetriesTotal != nil {
		listRetriesTotal.Inc()
	}
}

func trackInFlight(delta float64) {
	if detailFetchesInFlight != nil {
		detailFetchesInFlight.Add(delta)
	}
}
