package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/pkg/errors"
)

type ListIssuesOptions struct {
	Status issue.Status
	Search string
}

type ListIssuesOptionFunc func(opts *ListIssuesOptions)

func WithStatus(status issue.Status) ListIssuesOptionFunc {
	return func(opts *ListIssuesOptions) {
		opts.Status = status
	}
}

func WithSearch(search string) ListIssuesOptionFunc {
	return func(opts *ListIssuesOptions) {
		opts.Search = search
	}
}

// WithFilter copies both predicates from f.
func WithFilter(f issue.Filter) ListIssuesOptionFunc {
	return func(opts *ListIssuesOptions) {
		opts.Status = f.Status
		opts.Search = f.Search
	}
}

func NewListIssuesOptions(funcs ...ListIssuesOptionFunc) *ListIssuesOptions {
	opts := &ListIssuesOptions{}
	for _, fn := range funcs {
		fn(opts)
	}
	return opts
}

// DeletedIssue is the response of DeleteIssue.
type DeletedIssue struct {
	Message string       `json:"message"`
	Issue   *issue.Issue `json:"issue"`
}

func issuePath(id int64) string {
	endpoint := &url.URL{Path: "/issues"}
	return endpoint.JoinPath(strconv.FormatInt(id, 10)).String()
}

func (c *Client) ListIssues(ctx context.Context, funcs ...ListIssuesOptionFunc) ([]*issue.Issue, error) {
	opts := NewListIssuesOptions(funcs...)

	endpoint := &url.URL{
		Path: "/issues",
	}

	query := endpoint.Query()
	if opts.Status != "" {
		query.Set("status", string(opts.Status))
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	endpoint.RawQuery = query.Encode()

	issues := []*issue.Issue{}
	if err := c.jsonRequest(ctx, "GET", endpoint.String(), nil, &issues); err != nil {
		return nil, errors.WithStack(err)
	}

	return issues, nil
}

func (c *Client) GetIssue(ctx context.Context, id int64) (*issue.Issue, error) {
	var i issue.Issue
	if err := c.jsonRequest(ctx, "GET", issuePath(id), nil, &i); err != nil {
		return nil, errors.WithStack(err)
	}
	return &i, nil
}

func (c *Client) CreateIssue(ctx context.Context, n issue.NewIssue) (*issue.Issue, error) {
	var i issue.Issue
	if err := c.jsonRequest(ctx, "POST", "/issues", n, &i); err != nil {
		return nil, errors.WithStack(err)
	}
	return &i, nil
}

// UpdateIssue sends only the fields set in p.
func (c *Client) UpdateIssue(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error) {
	var i issue.Issue
	if err := c.jsonRequest(ctx, "PUT", issuePath(id), p, &i); err != nil {
		return nil, errors.WithStack(err)
	}
	return &i, nil
}

func (c *Client) DeleteIssue(ctx context.Context, id int64) (*DeletedIssue, error) {
	var res DeletedIssue
	if err := c.jsonRequest(ctx, "DELETE", issuePath(id), nil, &res); err != nil {
		return nil, errors.WithStack(err)
	}
	return &res, nil
}
