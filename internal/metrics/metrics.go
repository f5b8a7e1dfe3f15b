// Package metrics collects and exposes Prometheus metrics for the
// reconciliation paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts the events worth alerting on: webhook outcomes, sync
// runs, and upsert volume.
type Collector struct {
	webhookEvents *prometheus.CounterVec
	syncRuns      *prometheus.CounterVec
	subsUpserted  prometheus.Counter
	ordersUpsert  prometheus.Counter
	catalogSize   prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polarkit_webhook_events_total",
			Help: "Webhook deliveries by event type and outcome.",
		}, []string{"type", "outcome"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "polarkit_sync_runs_total",
			Help: "Pull-sync runs by outcome.",
		}, []string{"kind", "outcome"}),
		subsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polarkit_subscriptions_upserted_total",
			Help: "Subscription records written by reconciliation.",
		}),
		ordersUpsert: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "polarkit_orders_upserted_total",
			Help: "Order records written by webhook ingestion.",
		}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "polarkit_catalog_products",
			Help: "Products currently in the local catalog cache.",
		}),
	}
	reg.MustRegister(c.webhookEvents, c.syncRuns, c.subsUpserted, c.ordersUpsert, c.catalogSize)
	return c
}

// Webhook outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
	OutcomeOK        = "ok"
)

func (c *Collector) RecordWebhookEvent(eventType, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (c *Collector) RecordSyncRun(kind, outcome string) {
	c.syncRuns.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordSubscriptionUpserted() {
	c.subsUpserted.Inc()
}

func (c *Collector) RecordOrderUpserted() {
	c.ordersUpsert.Inc()
}

func (c *Collector) SetCatalogSize(n int) {
	c.catalogSize.Set(float64(n))
}

// SetupMetricsRoute returns the handler serving the registry in Prometheus
// exposition format.
func SetupMetricsRoute(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
