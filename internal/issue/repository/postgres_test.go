package repository_test

import (
	"context"
	"testing"

	"github.com/Dzhud/issue-tracker/internal/database"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/internal/issue/repository/testsuite"
	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func TestPostgresRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("issue_tracker"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %+v", errors.WithStack(err))
		}
	}()
	if err != nil {
		t.Skipf("postgres container unavailable: %+v", errors.WithStack(err))
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.OpenSQL(ctx, database.SQLOptions{Driver: "postgres", DSN: dsn, MaxOpenConns: 4, LogLevel: logger.LevelError})
	require.NoError(t, err)
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	testsuite.TestRepository(t, func(t *testing.T, clock *testsuite.Clock) repository.Repository {
		repo := repository.NewSQLRepo(db, repository.WithClock(clock.Now))
		require.NoError(t, repo.EnsureSchema(ctx))
		resetPostgres(t, db)
		return repo
	})
}

func resetPostgres(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec("TRUNCATE issues RESTART IDENTITY").Error)
}
