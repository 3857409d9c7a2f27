package logger_test

import (
	"errors"

	"github.com/wonny/agrimet/pkg/config"
	"github.com/wonny/agrimet/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Info("Application started")
	log.Warnf("Retry attempt %d of %d", 3, 5)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "info", LogFormat: "json"})

	log.WithFields(map[string]interface{}{
		"dataset": "data/cuaca.csv",
		"rows":    3650,
		"policy":  "ffill",
	}).Info("Dataset normalized")

	log.WithError(errors.New("duplicate date 2021-03-04")).Error("Normalization failed")
}
