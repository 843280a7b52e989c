// main.go
package main

import (
	"context"
	"log"

	"payment-service/cmd"
	"payment-service/internal/data/repository"
	"payment-service/internal/gateway"
	"payment-service/internal/wire"
	"payment-service/pkg/database"
	"payment-service/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Select storage: postgres for deployments, memory for local profiles
	var repos *repository.Repository
	if config.Database.Driver == "memory" {
		logger.Warn("Using in-memory storage, all data is lost on restart")
		repos = repository.NewMemoryRepository()
	} else {
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger)
	}

	// Select gateway client
	var gw gateway.Client
	if config.Gateway.Mode == "simulated" {
		logger.Warn("Using simulated payment gateway")
		gw = gateway.NewSimulator(logger)
	} else {
		gw = gateway.NewOmiseClient(config.Gateway, logger)
	}

	// Wire all dependencies
	app := wire.Wiring(repos, gw, config, logger)

	// Background expiration sweep runs until shutdown
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go app.Service.Sweeper.Run(sweepCtx)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port, logger)
}
