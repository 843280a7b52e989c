package wire

import (
	"payment-service/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		// The static method catalog comes before /{id} so "methods" is
		// never parsed as a payment ID.
		r.Get("/methods", paymentHandler.GetPaymentMethods)

		r.Post("/", paymentHandler.CreatePayment)
		r.Get("/", paymentHandler.GetPayments)
		r.Get("/{id}", paymentHandler.GetPayment)
		r.Get("/{id}/status", paymentHandler.GetPaymentStatus)
		r.Post("/{id}/cancel", paymentHandler.CancelPayment)
		r.Post("/{id}/force-update", paymentHandler.ForceUpdatePayment)
	})
}
