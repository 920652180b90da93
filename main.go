package main

import (
	netrpc "net/rpc"

	"github.com/wfunc/partyserver/config"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/monitor"
	"github.com/wfunc/partyserver/persistence"
	"github.com/wfunc/partyserver/rpc"
	"github.com/wfunc/partyserver/server"
	"github.com/wfunc/partyserver/services"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize party store
	var store persistence.Store
	var recorder persistence.Recorder

	switch cfg.Database.Driver {
	case "memory":
		mem := persistence.NewMemoryStore()
		store, recorder = mem, mem
		logger.Log.Info("Using in-memory party store.")
	case "postgres":
		pg, err := persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		store, recorder = pg, pg
		logger.Log.Info("Database connection successful.")
	default:
		pg, err := persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		store, recorder = pg, pg
		logger.Log.Info("Database connection successful.")

		history := services.NewHistoryService(pg)
		netrpc.Register(rpc.NewHistoryAdminService(history))
	}
	defer store.Close()

	// Metrics endpoint
	mon := monitor.NewMonitor("partyserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize and start the party server
	partyServer := server.NewPartyServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, store, recorder, mon)

	logger.Log.Infof("Starting party server on %s", cfg.Server.HTTPAddress)
	if err := partyServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
