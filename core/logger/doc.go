// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production).
//
// # Job Correlation
//
// The WithJobID helper attaches the job UUID to the log entry, ensuring that
// all logs related to a specific reconciliation job can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Archive sync started")
//
//	// In a job:
//	l := logger.WithJobID(log, job.ID)
//	l.Error("Bucket scan failed", zap.Error(err))
package logger
