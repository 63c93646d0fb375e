package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"shakti-shield/internal/models"
)

const metricsNamespace = "shakti_shield"

// Metrics holds the SOS counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	triggers      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	broadcast     *prometheus.CounterVec
	tokensCleared prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sos_triggers_total",
			Help:      "SOS triggers by outcome.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sos_notifications_total",
			Help:      "Trusted contact channel attempts.",
		}, []string{"channel", "result"}),
		broadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sos_broadcast_recipients_total",
			Help:      "Broadcast recipients by channel and outcome.",
		}, []string{"channel", "result"}),
		tokensCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sos_push_tokens_cleared_total",
			Help:      "Push tokens cleared after the provider rejected them.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.triggers, m.notifications, m.broadcast, m.tokensCleared)
	}

	return m
}

func (m *Metrics) trigger(result string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(result).Inc()
}

func (m *Metrics) channel(res models.ChannelResult) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(res.Channel), resultLabel(res.Success)).Inc()
}

func (m *Metrics) broadcastResult(channel models.Channel, res models.BroadcastResult) {
	if m == nil {
		return
	}
	m.broadcast.WithLabelValues(string(channel), "sent").Add(float64(res.Sent))
	m.broadcast.WithLabelValues(string(channel), "failed").Add(float64(res.Failed))
	m.tokensCleared.Add(float64(res.InvalidTokensCleared))
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
