package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Dzhud/issue-tracker/internal/database"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/internal/issue/repository/testsuite"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func TestMongoRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %+v", errors.WithStack(err))
		}
	}()
	if err != nil {
		t.Skipf("mongodb container unavailable: %+v", errors.WithStack(err))
	}

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := database.ConnectMongo(ctx, uri, 10*time.Second)
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()

	n := 0
	testsuite.TestRepository(t, func(t *testing.T, clock *testsuite.Clock) repository.Repository {
		n++
		repo := repository.NewMongoRepo(client.Database(fmt.Sprintf("issues_test_%d", n)), repository.WithClock(clock.Now))
		require.NoError(t, repo.EnsureIndexes(ctx))
		return repo
	})
}
