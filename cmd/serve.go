package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"scene-archiver/core/loader"
	"scene-archiver/core/middleware/auth"
	"scene-archiver/core/scheduler"
	"scene-archiver/feature/archive"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd starts the HTTP server with the job API and optional background
// sync scheduler.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the archiver server",
	Long: `Starts the HTTP server exposing the job API (start, inspect, cancel
reconciliation jobs) and engine status, plus the optional cron-scheduled
background sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := initApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()
		defer a.pool.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		// Request logging
		app.Use(func(c *fiber.Ctx) error {
			a.log.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				a.log.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Protect the API
		app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey}))

		mgr := loader.NewManager()
		mgr.Register(archive.NewFeature(a.service))
		if err := mgr.LoadAll(app); err != nil {
			a.log.Fatal("Failed to load features", zap.Error(err))
		}

		sched := scheduler.New(a.cfg.Scheduler, a.service, a.log)
		if err := sched.Start(ctx); err != nil {
			a.log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()

		go func() {
			a.log.Info("Server listening", zap.String("port", a.cfg.Server.Port))
			if err := app.Listen(":" + a.cfg.Server.Port); err != nil {
				a.log.Error("Server stopped", zap.Error(err))
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		a.log.Info("Shutting down")
		cancel()
		if err := app.Shutdown(); err != nil {
			a.log.Error("Shutdown failed", zap.Error(err))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
