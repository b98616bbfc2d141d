package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/internal/issue/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(svc service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterIssueRoutes(g, svc)
	return g
}

func do(t *testing.T, g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestIssueHandler_WorkedExample(t *testing.T) {
	g := newEngine(service.New(repository.NewMemoryRepo()))

	// create
	w := do(t, g, http.MethodPost, "/api/issues", `{"title":"Bug A"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "Bug A", created["title"])
	assert.Equal(t, "open", created["status"])
	assert.Nil(t, created["description"])
	assert.Contains(t, created, "description", "description is always serialized")
	assert.Equal(t, created["created_at"], created["updated_at"])
	id := int64(created["id"].(float64))
	path := "/api/issues/" + jsonID(id)

	// update status only
	w = do(t, g, http.MethodPut, path, `{"status":"closed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[issue.Issue](t, w)
	assert.Equal(t, issue.StatusClosed, updated.Status)
	assert.Equal(t, "Bug A", updated.Title)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	// get
	w = do(t, g, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, issue.StatusClosed, decode[issue.Issue](t, w).Status)

	// delete
	w = do(t, g, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	del := decode[DeleteResponse](t, w)
	assert.Equal(t, "Issue deleted successfully", del.Message)
	require.NotNil(t, del.Issue)
	assert.Equal(t, id, del.Issue.ID)
	assert.Equal(t, issue.StatusClosed, del.Issue.Status)

	// gone
	w = do(t, g, http.MethodGet, path, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Issue not found", errorBody(t, w))
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestIssueHandler_ListFilters(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := repository.NewMemoryRepo(repository.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	g := newEngine(service.New(repo))

	for _, body := range []string{
		`{"title":"Login fails","status":"open"}`,
		`{"title":"Crash on save","description":"login token missing","status":"closed"}`,
		`{"title":"Typo","status":"in-progress"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, g, http.MethodPost, "/api/issues", body).Code)
	}

	w := do(t, g, http.MethodGet, "/api/issues", "")
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]issue.Issue](t, w)
	require.Len(t, all, 3)
	assert.Equal(t, "Typo", all[0].Title, "newest first")

	w = do(t, g, http.MethodGet, "/api/issues?search=LOGIN", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]issue.Issue](t, w), 2)

	w = do(t, g, http.MethodGet, "/api/issues?status=closed&search=login", "")
	got := decode[[]issue.Issue](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "Crash on save", got[0].Title)

	w = do(t, g, http.MethodGet, "/api/issues?status=archived", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestIssueHandler_EmptyListIsArray(t *testing.T) {
	g := newEngine(service.New(repository.NewMemoryRepo()))
	w := do(t, g, http.MethodGet, "/api/issues", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestIssueHandler_CreateValidation(t *testing.T) {
	g := newEngine(service.New(repository.NewMemoryRepo()))

	cases := []struct {
		body string
		msg  string
	}{
		{`{}`, "Title is required"},
		{"", "Title is required"},
		{`{"title":""}`, "Title is required"},
		{`{"title":"x","status":"archived"}`, "Invalid status"},
		{`{"title":`, "Invalid request body"},
		{`{"title":42}`, "Invalid request body"},
	}
	for _, tc := range cases {
		w := do(t, g, http.MethodPost, "/api/issues", tc.body)
		require.Equal(t, http.StatusBadRequest, w.Code, tc.body)
		assert.Equal(t, tc.msg, errorBody(t, w), tc.body)
	}

	w := do(t, g, http.MethodGet, "/api/issues", "")
	assert.JSONEq(t, `[]`, w.Body.String(), "rejected creates leave the store untouched")
}

func TestIssueHandler_UpdatePresence(t *testing.T) {
	g := newEngine(service.New(repository.NewMemoryRepo()))
	w := do(t, g, http.MethodPost, "/api/issues", `{"title":"x","description":"keep me"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/api/issues/" + jsonID(decode[issue.Issue](t, w).ID)

	w = do(t, g, http.MethodPut, path, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", errorBody(t, w))

	w = do(t, g, http.MethodPut, path, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", errorBody(t, w))

	w = do(t, g, http.MethodPut, path, `{"title":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", errorBody(t, w))

	w = do(t, g, http.MethodPut, path, `{"title":null}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title cannot be empty", errorBody(t, w))

	w = do(t, g, http.MethodPut, path, `{"status":"done"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid status", errorBody(t, w))

	w = do(t, g, http.MethodPut, path, `{"title":"y"}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[issue.Issue](t, w)
	require.NotNil(t, got.Description)
	assert.Equal(t, "keep me", *got.Description, "absent fields are untouched")

	w = do(t, g, http.MethodPut, path, `{"description":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[issue.Issue](t, w)
	require.NotNil(t, got.Description)
	assert.Equal(t, "", *got.Description)

	w = do(t, g, http.MethodPut, path, `{"description":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[issue.Issue](t, w).Description)
}

func TestIssueHandler_UnknownIDs(t *testing.T) {
	g := newEngine(service.New(repository.NewMemoryRepo()))

	for _, path := range []string{"/api/issues/999", "/api/issues/abc", "/api/issues/-1"} {
		w := do(t, g, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "Issue not found", errorBody(t, w))

		w = do(t, g, http.MethodPut, path, `{"title":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code, path)

		w = do(t, g, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

// brokenService fails every operation like an unreachable database.
type brokenService struct{}

var errDown = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

func (brokenService) List(context.Context, issue.Filter) ([]*issue.Issue, error) { return nil, errDown }
func (brokenService) Get(context.Context, int64) (*issue.Issue, error) { return nil, errDown }
func (brokenService) Create(context.Context, issue.NewIssue) (*issue.Issue, error) {
	return nil, errDown
}
func (brokenService) Update(context.Context, int64, issue.Patch) (*issue.Issue, error) {
	return nil, errDown
}
func (brokenService) Delete(context.Context, int64) (*issue.Issue, error) { return nil, errDown }

func TestIssueHandler_StoreFailureIsGeneric(t *testing.T) {
	g := newEngine(brokenService{})

	requests := []struct{ method, path, body string }{
		{http.MethodGet, "/api/issues", ""},
		{http.MethodGet, "/api/issues/1", ""},
		{http.MethodPost, "/api/issues", `{"title":"x"}`},
		{http.MethodPut, "/api/issues/1", `{"title":"x"}`},
		{http.MethodDelete, "/api/issues/1", ""},
	}
	for _, r := range requests {
		w := do(t, g, r.method, r.path, r.body)
		require.Equal(t, http.StatusInternalServerError, w.Code, r.method+" "+r.path)
		assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "5432", "driver detail must not leak")
	}
}
