package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dzhud/issue-tracker/internal/issue"
)

var (
	ErrNotFound = errors.New("issue not found")
)

// Repository is the issue store. Each method maps to exactly one statement
// against the backing engine.
type Repository interface {
	List(ctx context.Context, f issue.Filter) ([]*issue.Issue, error)
	Get(ctx context.Context, id int64) (*issue.Issue, error)
	Create(ctx context.Context, n issue.NewIssue) (*issue.Issue, error)
	Update(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error)
	Delete(ctx context.Context, id int64) (*issue.Issue, error)
	Ping(ctx context.Context) error
}

// Options configure a repository.
type Options struct {
	// Now returns the current time. Results are converted to UTC and
	// truncated to the precision of the backend.
	Now func() time.Time
}

type OptionFunc func(opts *Options)

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) OptionFunc {
	return func(opts *Options) {
		opts.Now = now
	}
}

func NewOptions(funcs ...OptionFunc) *Options {
	opts := &Options{
		Now: time.Now,
	}
	for _, fn := range funcs {
		fn(opts)
	}
	return opts
}

func clock(opts *Options, precision time.Duration) func() time.Time {
	return func() time.Time {
		return opts.Now().UTC().Truncate(precision)
	}
}
