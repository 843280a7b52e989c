package adaptor

import (
	"net/http"

	"payment-service/internal/dto/response"
	"payment-service/internal/usecase"
	"payment-service/pkg/utils"

	"go.uber.org/zap"
)

type SweepHandler struct {
	sweeper usecase.Sweeper
	log     *zap.Logger
}

func NewSweepHandler(sweeper usecase.Sweeper, log *zap.Logger) *SweepHandler {
	return &SweepHandler{
		sweeper: sweeper,
		log:     log.With(zap.String("handler", "sweep")),
	}
}

// CleanupPayments handles POST /cron/cleanup-payments. Runs the same sweep
// the background ticker runs, on demand.
func (h *SweepHandler) CleanupPayments(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.SweepOnce(r.Context())
	if err != nil {
		h.log.Error("Manual sweep failed", zap.Error(err))
		utils.ResponseInternalError(w, "Sweep failed")
		return
	}

	utils.ResponseSuccess(w, "success", response.SweepResponse{
		Discovered: report.Discovered,
		Cancelled:  report.Cancelled,
		Rejected:   report.Rejected,
		Failed:     report.Failed,
	})
}
