package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/internal/issue/handler"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/internal/issue/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	handler.RegisterIssueRoutes(g, service.New(repository.NewMemoryRepo()))
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)

	baseURL, err := ParseBaseURL(srv.URL)
	require.NoError(t, err)
	return New(WithBaseURL(baseURL))
}

func strPtr(s string) *string { return &s }

func TestClientLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateIssue(ctx, issue.NewIssue{Title: "Bug A", Description: strPtr("first")})
	require.NoError(t, err)
	assert.Equal(t, "Bug A", created.Title)
	assert.Equal(t, issue.StatusOpen, created.Status)

	_, err = c.CreateIssue(ctx, issue.NewIssue{Title: "Other", Status: issue.StatusClosed})
	require.NoError(t, err)

	list, err := c.ListIssues(ctx, WithStatus(issue.StatusOpen))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	list, err = c.ListIssues(ctx, WithSearch("oth"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Other", list[0].Title)

	updated, err := c.UpdateIssue(ctx, created.ID, issue.Patch{
		Status:      issue.Some(issue.StatusInProgress),
		Description: issue.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, issue.StatusInProgress, updated.Status)
	assert.Equal(t, "Bug A", updated.Title, "unset fields are not sent")
	assert.Nil(t, updated.Description)

	got, err := c.GetIssue(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.StatusInProgress, got.Status)

	deleted, err := c.DeleteIssue(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Issue deleted successfully", deleted.Message)
	assert.Equal(t, created.ID, deleted.Issue.ID)

	_, err = c.GetIssue(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClientSurfacesValidationErrors(t *testing.T) {
	c := newTestClient(t)

	_, err := c.CreateIssue(context.Background(), issue.NewIssue{Title: ""})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Title is required", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestClientListEmpty(t *testing.T) {
	c := newTestClient(t)
	list, err := c.ListIssues(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestClientHonorsBasePathPrefix(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	baseURL, err := ParseBaseURL(srv.URL + "/tracker")
	require.NoError(t, err)
	c := New(WithBaseURL(baseURL))

	_, err = c.ListIssues(context.Background(), WithFilter(issue.Filter{Status: issue.StatusClosed, Search: "a b"}))
	require.NoError(t, err)
	assert.Equal(t, "/tracker/api/issues?search=a+b&status=closed", seen.Load())
}

func TestParseBaseURL(t *testing.T) {
	_, err := ParseBaseURL("localhost:5000")
	assert.Error(t, err)
	u, err := ParseBaseURL("http://localhost:5000")
	require.NoError(t, err)
	assert.Equal(t, "localhost:5000", u.Host)
}

func TestRateLimitTransportRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"title":"x","description":null,"status":"open","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	baseURL, err := ParseBaseURL(srv.URL)
	require.NoError(t, err)
	c := New(WithBaseURL(baseURL), WithHTTPClient(&http.Client{
		Transport: &RateLimitTransport{MaxRetries: 5, DefaultWait: time.Millisecond},
	}))

	created, err := c.CreateIssue(context.Background(), issue.NewIssue{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRateLimitTransportGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
	}))
	defer srv.Close()

	baseURL, err := ParseBaseURL(srv.URL)
	require.NoError(t, err)
	c := New(WithBaseURL(baseURL), WithHTTPClient(&http.Client{
		Transport: &RateLimitTransport{MaxRetries: 2, DefaultWait: time.Millisecond},
	}))

	_, err = c.ListIssues(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Contains(t, err.Error(), "Rate limit exceeded")
	assert.Equal(t, int32(3), calls.Load())
}
