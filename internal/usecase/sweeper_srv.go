package usecase

import (
	"context"
	"time"

	"payment-service/internal/data/entity"
	"payment-service/internal/data/repository"
	"payment-service/pkg/utils"

	"go.uber.org/zap"
)

// SweepReport counts what one expiration sweep did with the stale
// candidates it discovered.
type SweepReport struct {
	Discovered int
	Cancelled  int
	Rejected   int
	Failed     int
}

type Sweeper interface {
	Run(ctx context.Context)
	SweepOnce(ctx context.Context) (*SweepReport, error)
}

type sweeperService struct {
	repo       *repository.Repository
	reconciler Reconciler
	holdTTL    time.Duration
	interval   time.Duration
	log        *zap.Logger
}

func NewSweeper(repo *repository.Repository, reconciler Reconciler, config *utils.Config, log *zap.Logger) Sweeper {
	return &sweeperService{
		repo:       repo,
		reconciler: reconciler,
		holdTTL:    config.Payments.HoldTTL,
		interval:   config.Payments.SweepInterval,
		log:        log.With(zap.String("service", "sweeper")),
	}
}

// Run sweeps on a fixed interval until the context is cancelled. Intended
// to be started once as a background goroutine next to the HTTP server.
func (s *sweeperService) Run(ctx context.Context) {
	s.log.Info("Expiration sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("hold_ttl", s.holdTTL),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Expiration sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("Expiration sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce finds payments that have been pending longer than the hold TTL
// and submits an expiration signal for each. The sweep only nominates
// candidates; the reconciler re-checks staleness under the per-charge lock,
// so a payment settled between discovery and application is simply
// rejected there, which is the expected outcome of losing the race.
func (s *sweeperService) SweepOnce(ctx context.Context) (*SweepReport, error) {
	cutoff := time.Now().Add(-s.holdTTL)
	candidates, err := s.repo.Payment.FindExpiredPending(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Discovered: len(candidates)}
	for _, payment := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		result, err := s.reconciler.SubmitSignal(ctx, SettlementSignal{
			ChargeRef: payment.ChargeRef,
			Kind:      entity.SignalExpiredByTimeout,
			Reason:    "pending beyond hold TTL",
		})
		if err != nil {
			// One bad payment must not stop the batch.
			report.Failed++
			s.log.Error("Failed to expire payment",
				zap.Error(err),
				zap.String("payment_id", payment.ID.String()),
				zap.String("charge_ref", payment.ChargeRef),
			)
			continue
		}
		if result.Applied() {
			report.Cancelled++
		} else {
			report.Rejected++
		}
	}

	if report.Discovered > 0 {
		s.log.Info("Expiration sweep finished",
			zap.Int("discovered", report.Discovered),
			zap.Int("cancelled", report.Cancelled),
			zap.Int("rejected", report.Rejected),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}
