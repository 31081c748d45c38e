package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking pipeline.
type BookingMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	bookingsTotal  *prometheus.CounterVec
	sweepRuns      prometheus.Counter
	remindersSent  prometheus.Counter
	webhookLatency prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnofacil",
			Subsystem: "whatsapp",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhooks",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnofacil",
			Subsystem: "whatsapp",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnofacil",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Total appointments booked through the bot",
		}, []string{"status"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turnofacil",
			Subsystem: "reminders",
			Name:      "sweep_runs_total",
			Help:      "Total reminder sweep executions",
		}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turnofacil",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Total appointment reminders sent",
		}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "turnofacil",
			Subsystem: "whatsapp",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook handling",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.bookingsTotal, m.sweepRuns, m.remindersSent, m.webhookLatency)
	return m
}

func (m *BookingMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveSweep(sent int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.remindersSent.Add(float64(sent))
}

func (m *BookingMetrics) ObserveWebhookLatency(seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.Observe(seconds)
}
