package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DecodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketqr_decodes_total",
			Help: "Decode attempts by path and outcome",
		},
		[]string{"path", "outcome"}, // live|still , decoded|no_symbol|decode_error|duplicate
	)

	ConfirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketqr_confirmations_total",
			Help: "Order confirmations triggered by a resolved decode",
		},
		[]string{"outcome"}, // confirmed|unknown_code|error
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketqr_notifications_total",
			Help: "Outbound confirmation notifications by outcome",
		},
		[]string{"outcome"}, // sent|failed|skipped|suppressed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		DecodesTotal,
		ConfirmationsTotal,
		NotificationsTotal,
	)
}
