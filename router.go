package main

import (
	"context"
	"time"

	"github.com/Dzhud/issue-tracker/handlers"
	"github.com/Dzhud/issue-tracker/internal/config"
	"github.com/Dzhud/issue-tracker/internal/issue/handler"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/internal/issue/service"
	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/Dzhud/issue-tracker/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// newRouter assembles the API engine. rdb may be nil when Redis is not
// configured.
func newRouter(cfg *config.Config, repo repository.Repository, rdb *redis.Client, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CORS(), middleware.RequestLogger("api"), gin.Recovery())

	deps := map[string]handlers.Pinger{"store": repo}
	if rdb != nil {
		deps["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	handlers.RegisterHealth(r, deps, readinessTimeout)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	handlers.RegisterSwagger(r)

	api := r.Group("/")
	if cfg.RateLimit.Enabled {
		switch {
		case cfg.RateLimit.UseRedis && rdb != nil:
			window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			logger.Infof("rate limiter: redis (%.1f rps, burst %d, window %s)", cfg.RateLimit.RPS, cfg.RateLimit.Burst, window)
			api.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, window))
		default:
			if cfg.RateLimit.UseRedis {
				logger.Warnf("rate limiter: redis requested but unavailable, falling back to memory")
			}
			logger.Infof("rate limiter: memory (%.1f rps, burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
			api.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}
	handler.RegisterIssueRoutes(api, service.New(repo))

	return r
}
