package wire

import (
	"net/http"

	"payment-service/internal/adaptor"
	"payment-service/internal/data/repository"
	"payment-service/internal/gateway"
	"payment-service/internal/usecase"
	"payment-service/pkg/middleware"
	"payment-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds everything the server needs after wiring.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring initializes services, handlers and the router.
func Wiring(repo *repository.Repository, gw gateway.Client, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, gw, config, logger)
	handler := adaptor.NewHandler(service, config, logger)

	router := setupRouter(handler, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wirePayment(r, handler.Payment)
	wireWebhook(r, handler.Webhook)
	wireSweep(r, handler.Sweep)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
