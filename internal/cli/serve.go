package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docuhub/exam-service/internal/handlers"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, *envFile)
			if err != nil {
				return err
			}
			return a.serve(ctx)
		},
	}
}

func (a *app) newRouter() *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, a.logger, a.cfg.FrontendURL)

	handlerManager := handlers.NewHandlerManager(a.services, a.authenticator, a.logger, !a.cfg.IsProduction())
	handlerManager.SetupRoutes(router)
	return router
}

// serve runs the HTTP server and the optional expiry sweeper until ctx is cancelled
func (a *app) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.cfg.Port),
		Handler:           a.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting server", "port", a.cfg.Port, "environment", a.cfg.Environment,
			"storage", a.cfg.StorageDriver, "auth", a.cfg.AuthProvider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	if a.cfg.ExpirySweepInterval > 0 {
		g.Go(func() error {
			a.runSweeper(gctx, a.cfg.ExpirySweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Server forced to shutdown", "error", err)
		}
		a.close(shutdownCtx)
		return nil
	})

	err := g.Wait()
	a.logger.Info("Server exited")
	return err
}

func (a *app) runSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("Expiry sweep enabled", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := a.services.Attempt().ExpireStale(ctx)
			if err != nil {
				a.logger.Error("Expiry sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				a.logger.Info("Expired stale attempts", "count", expired)
			}
		}
	}
}
