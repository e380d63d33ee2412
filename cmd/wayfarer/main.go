package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/seantiz/wayfarer/internal/activity"
	"github.com/seantiz/wayfarer/internal/api"
	"github.com/seantiz/wayfarer/internal/config"
	"github.com/seantiz/wayfarer/internal/feed"
	"github.com/seantiz/wayfarer/internal/itinerary"
	"github.com/seantiz/wayfarer/internal/ledger"
	"github.com/seantiz/wayfarer/internal/store"
	"github.com/seantiz/wayfarer/internal/tally"
	"github.com/seantiz/wayfarer/internal/trip"
)

func main() {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	logger.Info("wayfarer: starting",
		"listen_addr", cfg.ListenAddr,
		"db_driver", cfg.DBDriver,
		"identity_checks", cfg.JWTSecret != "",
	)

	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	broker := feed.NewBroker()
	worker := activity.NewWorker(db, broker, cfg.ActivityBuffer, logger)
	worker.Start()
	defer worker.Shutdown()

	svc := api.Services{
		Store:     db,
		Ledger:    ledger.New(db, worker, logger),
		Tally:     tally.New(db, worker, logger),
		Itinerary: itinerary.New(db, worker, logger),
		Trips:     trip.New(db, worker, logger),
		Broker:    broker,
	}
	srv := api.NewServer(cfg.ListenAddr, svc, cfg.JWTSecret, logger)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		worker.Shutdown()
		db.Close()
		os.Exit(1)
	}
}
