package wire

import (
	"payment-service/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireWebhook(r chi.Router, webhookHandler *adaptor.WebhookHandler) {
	r.Post("/webhooks/omise", webhookHandler.HandleEvent)
}

func wireSweep(r chi.Router, sweepHandler *adaptor.SweepHandler) {
	r.Post("/cron/cleanup-payments", sweepHandler.CleanupPayments)
}
