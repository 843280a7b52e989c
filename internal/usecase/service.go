package usecase

import (
	"payment-service/internal/data/repository"
	"payment-service/internal/gateway"
	"payment-service/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reconciler Reconciler
	Payment    PaymentService
	Sweeper    Sweeper
}

func NewService(repo *repository.Repository, gw gateway.Client, config *utils.Config, log *zap.Logger) *Service {
	reconciler := NewReconciler(repo, gw, config.Payments.HoldTTL, log)
	return &Service{
		Reconciler: reconciler,
		Payment:    NewPaymentService(repo, gw, reconciler, config, log),
		Sweeper:    NewSweeper(repo, reconciler, config, log),
	}
}
