package main

import (
	"log"
	"student-taskgen/internal/api"
	"student-taskgen/internal/config"
	"student-taskgen/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Mistral.APIKey == "" {
		log.Printf("WARNING: MISTRAL_API_KEY not set, clients must supply api_key per request")
	}

	// Initialize services
	generatorService := services.NewGeneratorService(cfg.Mistral, cfg.SchemaPath)
	batchService := services.NewBatchService(generatorService)
	runService := services.NewRunService()
	exportService := services.NewExportService()

	// Initialize handlers
	handlers := api.NewHandlers(batchService, runService, exportService, cfg)

	// Setup routes
	router := api.SetupRoutes(handlers)

	// Start server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
