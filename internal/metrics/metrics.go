package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the bot.
type Metrics struct {
	TGIncomingUpdates   *prometheus.CounterVec
	TGOutgoingMessages  *prometheus.CounterVec
	MovieLookups        *prometheus.CounterVec
	MovieUploads        *prometheus.CounterVec
	BroadcastDeliveries *prometheus.CounterVec
	Errors              *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			TGIncomingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tg_incoming_updates_total",
				Help:      "Total incoming Telegram updates processed.",
			}, []string{"type"}),
			TGOutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tg_outgoing_messages_total",
				Help:      "Total outgoing Telegram requests by kind.",
			}, []string{"type"}),
			MovieLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "movie_lookups_total",
				Help:      "Movie code lookups by result.",
			}, []string{"result"}),
			MovieUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "movie_uploads_total",
				Help:      "Admin movie uploads by outcome.",
			}, []string{"status"}),
			BroadcastDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_deliveries_total",
				Help:      "Broadcast messages by delivery status.",
			}, []string{"status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.TGIncomingUpdates,
			metricsInstance.TGOutgoingMessages,
			metricsInstance.MovieLookups,
			metricsInstance.MovieUploads,
			metricsInstance.BroadcastDeliveries,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}

// IncError bumps the error counter for component. Safe on a nil receiver.
func (m *Metrics) IncError(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}

// IncLookup records a code lookup outcome. Safe on a nil receiver.
func (m *Metrics) IncLookup(result string) {
	if m == nil {
		return
	}
	m.MovieLookups.WithLabelValues(result).Inc()
}

// IncUpload records an upload outcome. Safe on a nil receiver.
func (m *Metrics) IncUpload(status string) {
	if m == nil {
		return
	}
	m.MovieUploads.WithLabelValues(status).Inc()
}

// IncDelivery records a broadcast delivery outcome. Safe on a nil receiver.
func (m *Metrics) IncDelivery(status string) {
	if m == nil {
		return
	}
	m.BroadcastDeliveries.WithLabelValues(status).Inc()
}
