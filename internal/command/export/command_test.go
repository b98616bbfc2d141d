package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dzhud/issue-tracker/internal/command"
	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/internal/issue/handler"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/internal/issue/service"
	"github.com/Dzhud/issue-tracker/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	cfg         storage.Config
	key         string
	contentType string
	body        []byte
	presigned   time.Duration
}

func (f *fakeUploader) Name() string { return f.cfg.Bucket }

func (f *fakeUploader) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.Errorf("size mismatch: %d != %d", len(data), size)
	}
	f.key, f.contentType, f.body = key, contentType, data
	return nil
}

func (f *fakeUploader) PresignedGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	f.presigned = expires
	return "https://storage.example/" + f.cfg.Bucket + "/" + key + "?X-Amz-Signature=abc", nil
}

func setup(t *testing.T) (string, *fakeUploader) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	ctx := context.Background()
	for _, n := range []issue.NewIssue{
		{Title: "Crash on start", Status: issue.StatusOpen},
		{Title: "Typo in footer", Status: issue.StatusClosed},
		{Title: "Crash on exit", Status: issue.StatusClosed},
	} {
		_, err := repo.Create(ctx, n)
		require.NoError(t, err)
	}

	g := gin.New()
	handler.RegisterIssueRoutes(g, service.New(repo))
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)

	fake := &fakeUploader{}
	origUploader, origNow := newUploader, nowFunc
	newUploader = func(ctx context.Context, cfg storage.Config) (Uploader, error) {
		fake.cfg = cfg
		return fake, nil
	}
	nowFunc = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600)) }
	t.Cleanup(func() {
		newUploader, nowFunc = origUploader, origNow
	})

	return srv.URL, fake
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := command.NewApp("issuectl", "test", Command())
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"issuectl", "export"}, args...))
	return out.String(), err
}

func TestExportFilteredSnapshot(t *testing.T) {
	url, fake := setup(t)

	out, err := run(t, "--server", url, "--minio-endpoint", "localhost:9000", "--bucket", "snapshots", "--status", "closed", "--search", "crash")
	require.NoError(t, err)

	assert.Equal(t, "localhost:9000", fake.cfg.Endpoint)
	assert.Equal(t, "issues/export-20240301T083000Z.json", fake.key)
	assert.Equal(t, "application/json", fake.contentType)
	assert.Equal(t, "snapshots/issues/export-20240301T083000Z.json\n", out)
	assert.Zero(t, fake.presigned)

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(fake.body, &snapshot))
	assert.Equal(t, 1, snapshot.Count)
	assert.Equal(t, "closed", snapshot.Filter.Status)
	assert.Equal(t, "crash", snapshot.Filter.Search)
	assert.True(t, snapshot.ExportedAt.Equal(time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)))
	require.Len(t, snapshot.Issues, 1)
	assert.Equal(t, "Crash on exit", snapshot.Issues[0].Title)
}

func TestExportWithKeyAndPresign(t *testing.T) {
	url, fake := setup(t)

	out, err := run(t, "--server", url, "--bucket", "snapshots", "--key", "daily.json", "--presign", "15m")
	require.NoError(t, err)

	assert.Equal(t, "daily.json", fake.key)
	assert.Equal(t, 15*time.Minute, fake.presigned)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "snapshots/daily.json", lines[0])
	assert.Contains(t, lines[1], "X-Amz-Signature")

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(fake.body, &snapshot))
	assert.Equal(t, 3, snapshot.Count)
	assert.Empty(t, snapshot.Filter.Status)
}

func TestExportStorageFromEnvironment(t *testing.T) {
	url, fake := setup(t)
	t.Setenv("MINIO_ENDPOINT", "minio.internal:9000")
	t.Setenv("MINIO_ACCESS_KEY", "exporter")
	t.Setenv("MINIO_SECRET_KEY", "s3cret")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MINIO_BUCKET", "nightly")

	out, err := run(t, "--server", url)
	require.NoError(t, err)
	assert.Equal(t, storage.Config{
		Endpoint:  "minio.internal:9000",
		AccessKey: "exporter",
		SecretKey: "s3cret",
		UseSSL:    true,
		Bucket:    "nightly",
	}, fake.cfg)
	assert.Equal(t, "nightly/issues/export-20240301T083000Z.json\n", out)

	_, err = run(t, "--server", url, "--bucket", "adhoc", "--minio-use-ssl=false")
	require.NoError(t, err)
	assert.Equal(t, "adhoc", fake.cfg.Bucket, "flags override the environment")
	assert.False(t, fake.cfg.UseSSL)
	assert.Equal(t, "minio.internal:9000", fake.cfg.Endpoint)
	assert.Equal(t, "exporter", fake.cfg.AccessKey)
}

func TestExportDefaultBucket(t *testing.T) {
	url, fake := setup(t)
	t.Setenv("MINIO_BUCKET", "")

	_, err := run(t, "--server", url, "--minio-endpoint", "localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", fake.cfg.Endpoint)
	assert.Equal(t, "issuetracker", fake.cfg.Bucket)
}

func TestExportUnreachableAPI(t *testing.T) {
	_, fake := setup(t)

	_, err := run(t, "--server", "http://127.0.0.1:1", "--bucket", "snapshots")
	require.Error(t, err)
	assert.Nil(t, fake.body)
}

func TestEncodeSnapshotEmpty(t *testing.T) {
	data, err := encodeSnapshot(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), issue.Filter{}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"issues": []`)
	assert.Contains(t, string(data), `"count": 0`)
	assert.NotContains(t, string(data), `"status"`)
}
