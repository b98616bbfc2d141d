package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dzhud/issue-tracker/internal/config"
	"github.com/Dzhud/issue-tracker/internal/web"
	"github.com/Dzhud/issue-tracker/pkg/client"
	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/Dzhud/issue-tracker/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %+v", err)
	}
	logger.Init(cfg.LogLevel)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	baseURL, err := client.ParseBaseURL(cfg.Web.APIBaseURL)
	if err != nil {
		logger.Fatalf("invalid API_BASE_URL: %+v", err)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger("web"), gin.Recovery())
	if err := web.NewServer(client.New(client.WithBaseURL(baseURL))).Register(r); err != nil {
		logger.Fatalf("failed to set up views: %+v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         cfg.Web.Host + ":" + cfg.Web.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting web frontend on %s (api=%s)", srv.Addr, baseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("web server failed: %+v", errors.WithStack(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
