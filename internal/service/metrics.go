package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	intencoesCriadas = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_payment_intents_total",
			Help: "Payment intents de coaching criados, por resultado.",
		},
		[]string{"result"},
	)

	assinaturasCriadas = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_subscriptions_total",
			Help: "Assinaturas do plano básico criadas, por resultado.",
		},
		[]string{"result"},
	)

	eventosWebhook = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "Eventos recebidos da Stripe, por tipo e resultado.",
		},
		[]string{"type", "result"},
	)
)
