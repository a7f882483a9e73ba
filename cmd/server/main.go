package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/tillhanna/lingon/internal/app"
	"github.com/tillhanna/lingon/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	migrationsDir := service.Config.Database.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "./migrations"
	}
	if err := service.Store.ApplyMigrations(migrationsDir); err != nil {
		logger.Error.Fatalf("Failed to apply migrations: %v", err)
	}

	handler := handlers.NewHandler(service)

	http.HandleFunc("POST /login", handler.HandleLogin)
	http.HandleFunc("POST /get_course", handler.HandleGetCourse)
	http.HandleFunc("POST /insert_score", handler.HandleInsertScore)
	http.HandleFunc("POST /revise_score", handler.HandleReviseScore)
	http.HandleFunc("POST /info_modify", handler.HandleInfoModify)
	http.HandleFunc("POST /unsolvereq", handler.HandleUnsolveReq)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting lingon server on %s", service.Config.Server.Port)
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Lingon server failed: %v", err)
	}
}
