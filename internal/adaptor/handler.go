package adaptor

import (
	"payment-service/internal/usecase"
	"payment-service/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Payment *PaymentHandler
	Webhook *WebhookHandler
	Sweep   *SweepHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Payment: NewPaymentHandler(service.Payment, log),
		Webhook: NewWebhookHandler(service.Reconciler, config.Gateway.WebhookSecret, log),
		Sweep:   NewSweepHandler(service.Sweeper, log),
	}
}
