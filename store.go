package main

import (
	"context"
	"time"

	"github.com/Dzhud/issue-tracker/internal/config"
	"github.com/Dzhud/issue-tracker/internal/database"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// store is the opened issue repository plus its teardown.
type store struct {
	repo  repository.Repository
	close func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	attempts := cfg.Database.ConnectAttempts

	switch cfg.Database.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		logger.Infof("opening %s store: %s", cfg.Database.Driver, cfg.Database.Redacted())
		db, err := database.Retry(ctx, cfg.Database.Driver, attempts, time.Second, func(ctx context.Context) (*gorm.DB, error) {
			return database.OpenSQL(ctx, database.SQLOptions{
				Driver:       cfg.Database.Driver,
				DSN:          cfg.Database.DSN,
				MaxOpenConns: cfg.Database.MaxOpenConns,
				LogLevel:     logger.ParseLevel(cfg.LogLevel),
			})
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		repo := repository.NewSQLRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			return nil, errors.WithStack(err)
		}
		return &store{repo: repo, close: repo.Close}, nil

	case config.DriverMongo:
		logger.Infof("opening mongo store: database=%s", cfg.MongoDB.Database)
		client, err := database.Retry(ctx, "mongodb", attempts, time.Second, func(ctx context.Context) (*mongo.Client, error) {
			return database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		repo := repository.NewMongoRepo(client.Database(cfg.MongoDB.Database))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, errors.WithStack(err)
		}
		return &store{
			repo: repo,
			close: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return client.Disconnect(ctx)
			},
		}, nil

	case config.DriverMemory:
		logger.Warnf("using in-memory store: data is lost on restart")
		return &store{repo: repository.NewMemoryRepo(), close: func() error { return nil }}, nil
	}

	return nil, errors.Errorf("unsupported store driver %q", cfg.Database.Driver)
}
