// Package testsuite holds the behavior every issue store must share.
package testsuite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clock is a deterministic time source that advances one second per call.
type Clock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func NewClock() *Clock {
	return &Clock{next: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Freeze stops the clock so that subsequent calls return the same instant.
func (c *Clock) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = 0
}

// Factory returns a fresh, empty repository driven by the given clock.
type Factory func(t *testing.T, clock *Clock) repository.Repository

type testCase struct {
	Name string
	Run  func(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock)
}

func TestRepository(t *testing.T, factory Factory) {
	testCases := []testCase{
		{Name: "CreateAssignsIDAndTimestamps", Run: testCreate},
		{Name: "ListNewestFirst", Run: testListOrder},
		{Name: "ListTieBreakByID", Run: testListTieBreak},
		{Name: "FilterByStatus", Run: testFilterStatus},
		{Name: "SearchCaseInsensitive", Run: testSearch},
		{Name: "SearchIsLiteral", Run: testSearchLiteral},
		{Name: "SearchFoldsNonASCII", Run: testSearchNonASCII},
		{Name: "SearchAndStatus", Run: testSearchAndStatus},
		{Name: "UpdatePartial", Run: testUpdatePartial},
		{Name: "UpdateDescriptionNullAndEmpty", Run: testUpdateDescription},
		{Name: "UnknownID", Run: testUnknownID},
		{Name: "DeleteReturnsPriorRow", Run: testDelete},
		{Name: "IDsNotReused", Run: testIDsNotReused},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			clock := NewClock()
			repo := factory(t, clock)
			tc.Run(t, context.Background(), repo, clock)
		})
	}
}

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, ctx context.Context, repo repository.Repository, title string, description *string, status issue.Status) *issue.Issue {
	t.Helper()
	i, err := repo.Create(ctx, issue.NewIssue{Title: title, Description: description, Status: status})
	require.NoError(t, err)
	return i
}

func titles(list []*issue.Issue) []string {
	out := make([]string, 0, len(list))
	for _, i := range list {
		out = append(out, i.Title)
	}
	return out
}

func testCreate(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	a := mustCreate(t, ctx, repo, "Bug A", nil, issue.StatusOpen)
	b := mustCreate(t, ctx, repo, "Bug B", strPtr("details"), issue.StatusInProgress)

	assert.NotZero(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Bug A", a.Title)
	assert.Nil(t, a.Description)
	assert.Equal(t, issue.StatusOpen, a.Status)
	assert.True(t, a.CreatedAt.Equal(a.UpdatedAt), "created_at %v != updated_at %v", a.CreatedAt, a.UpdatedAt)
	require.NotNil(t, b.Description)
	assert.Equal(t, "details", *b.Description)

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Title, got.Title)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}

func testListOrder(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	mustCreate(t, ctx, repo, "first", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "second", nil, issue.StatusClosed)
	mustCreate(t, ctx, repo, "third", nil, issue.StatusInProgress)

	list, err := repo.List(ctx, issue.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, titles(list))
}

func testListTieBreak(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	clock.Freeze()
	a := mustCreate(t, ctx, repo, "a", nil, issue.StatusOpen)
	b := mustCreate(t, ctx, repo, "b", nil, issue.StatusOpen)
	require.True(t, a.CreatedAt.Equal(b.CreatedAt))

	list, err := repo.List(ctx, issue.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, titles(list))
}

func testFilterStatus(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	mustCreate(t, ctx, repo, "one", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "two", nil, issue.StatusClosed)
	mustCreate(t, ctx, repo, "three", nil, issue.StatusClosed)

	list, err := repo.List(ctx, issue.Filter{Status: issue.StatusClosed})
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two"}, titles(list))
	for _, i := range list {
		assert.Equal(t, issue.StatusClosed, i.Status)
	}

	none, err := repo.List(ctx, issue.Filter{Status: issue.Status("archived")})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSearch(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	mustCreate(t, ctx, repo, "Login FOO fails", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "unrelated", strPtr("nothing here"), issue.StatusOpen)
	mustCreate(t, ctx, repo, "crash", strPtr("stack mentions foobar"), issue.StatusClosed)

	list, err := repo.List(ctx, issue.Filter{Search: "foo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"crash", "Login FOO fails"}, titles(list))
}

func testSearchLiteral(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	mustCreate(t, ctx, repo, "100% broken", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "1000 users", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "snake_case", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "snakeXcase", nil, issue.StatusOpen)

	list, err := repo.List(ctx, issue.Filter{Search: "0%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% broken"}, titles(list))

	list, err = repo.List(ctx, issue.Filter{Search: "e_c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"snake_case"}, titles(list))
}

func testSearchNonASCII(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	mustCreate(t, ctx, repo, "Ärger im Büro", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "plain", strPtr("Straße gesperrt, ÉTÉ"), issue.StatusOpen)

	for search, want := range map[string][]string{
		"Ärger":  {"Ärger im Büro"},
		"ärger":  {"Ärger im Büro"},
		"BÜRO":   {"Ärger im Büro"},
		"été":    {"plain"},
		"STRAßE": {"plain"},
	} {
		list, err := repo.List(ctx, issue.Filter{Search: search})
		require.NoError(t, err)
		assert.Equal(t, want, titles(list), "search %q", search)
	}
}

func testSearchAndStatus(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	mustCreate(t, ctx, repo, "api timeout", nil, issue.StatusOpen)
	mustCreate(t, ctx, repo, "api error", nil, issue.StatusClosed)
	mustCreate(t, ctx, repo, "ui glitch", strPtr("API call"), issue.StatusClosed)

	list, err := repo.List(ctx, issue.Filter{Status: issue.StatusClosed, Search: "api"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ui glitch", "api error"}, titles(list))
}

func testUpdatePartial(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	created := mustCreate(t, ctx, repo, "Bug A", strPtr("desc"), issue.StatusOpen)

	updated, err := repo.Update(ctx, created.ID, issue.Patch{Status: issue.Some(issue.StatusClosed)})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Bug A", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "desc", *updated.Description)
	assert.Equal(t, issue.StatusClosed, updated.Status)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updated_at did not advance")

	again, err := repo.Update(ctx, created.ID, issue.Patch{Title: issue.Some("Bug A2")})
	require.NoError(t, err)
	assert.Equal(t, "Bug A2", again.Title)
	assert.Equal(t, issue.StatusClosed, again.Status)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bug A2", got.Title)
}

func testUpdateDescription(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	created := mustCreate(t, ctx, repo, "x", strPtr("desc"), issue.StatusOpen)

	empty, err := repo.Update(ctx, created.ID, issue.Patch{Description: issue.Some("")})
	require.NoError(t, err)
	require.NotNil(t, empty.Description)
	assert.Equal(t, "", *empty.Description)

	cleared, err := repo.Update(ctx, created.ID, issue.Patch{Description: issue.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)
}

func testUnknownID(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	_, err := repo.Get(ctx, 4242)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Update(ctx, 4242, issue.Patch{Title: issue.Some("x")})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Delete(ctx, 4242)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testDelete(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	created := mustCreate(t, ctx, repo, "doomed", nil, issue.StatusOpen)
	closed, err := repo.Update(ctx, created.ID, issue.Patch{Status: issue.Some(issue.StatusClosed)})
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, issue.StatusClosed, deleted.Status)
	assert.True(t, deleted.UpdatedAt.Equal(closed.UpdatedAt))

	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := repo.List(ctx, issue.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testIDsNotReused(t *testing.T, ctx context.Context, repo repository.Repository, clock *Clock) {
	a := mustCreate(t, ctx, repo, "a", nil, issue.StatusOpen)
	b := mustCreate(t, ctx, repo, "b", nil, issue.StatusOpen)
	_, err := repo.Delete(ctx, b.ID)
	require.NoError(t, err)

	c := mustCreate(t, ctx, repo, "c", nil, issue.StatusOpen)
	assert.NotEqual(t, a.ID, c.ID)
	assert.NotEqual(t, b.ID, c.ID)
}
