package main

import (
	"log"

	"github.com/joho/godotenv"

	"splitter/cmd"
	"splitter/internal/config"
	"splitter/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		// Commands report the configuration error themselves.
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Debug("Starting splitter")

	cmd.Execute()
}
