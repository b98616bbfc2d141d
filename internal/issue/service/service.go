package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/internal/issue/repository"
	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/Dzhud/issue-tracker/pkg/metrics"
)

var (
	ErrNotFound = errors.New("issue not found")
)

// ValidationError is returned when input is rejected before reaching the store.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Service defines the issue operations used by the handler layer.
type Service interface {
	List(ctx context.Context, f issue.Filter) ([]*issue.Issue, error)
	Get(ctx context.Context, id int64) (*issue.Issue, error)
	Create(ctx context.Context, n issue.NewIssue) (*issue.Issue, error)
	Update(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error)
	Delete(ctx context.Context, id int64) (*issue.Issue, error)
}

// Issues validates input, delegates to a repository and records an outcome
// metric per operation. Store failures are logged with their stack and
// returned unchanged.
type Issues struct {
	repo repository.Repository
	log  *logger.Component
}

func New(repo repository.Repository) *Issues {
	return &Issues{repo: repo, log: logger.Named("issues")}
}

func (s *Issues) List(ctx context.Context, f issue.Filter) ([]*issue.Issue, error) {
	list, err := s.repo.List(ctx, f)
	return list, s.observe("list", err)
}

func (s *Issues) Get(ctx context.Context, id int64) (*issue.Issue, error) {
	i, err := s.repo.Get(ctx, id)
	return i, s.observe("get", err)
}

func (s *Issues) Create(ctx context.Context, n issue.NewIssue) (*issue.Issue, error) {
	if err := validateNew(&n); err != nil {
		return nil, s.observe("create", err)
	}
	i, err := s.repo.Create(ctx, n)
	return i, s.observe("create", err)
}

func (s *Issues) Update(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error) {
	if err := validatePatch(p); err != nil {
		return nil, s.observe("update", err)
	}
	i, err := s.repo.Update(ctx, id, p)
	return i, s.observe("update", err)
}

func (s *Issues) Delete(ctx context.Context, id int64) (*issue.Issue, error) {
	i, err := s.repo.Delete(ctx, id)
	return i, s.observe("delete", err)
}

func validateNew(n *issue.NewIssue) error {
	if strings.TrimSpace(n.Title) == "" {
		return invalid("Title is required")
	}
	if n.Status == "" {
		n.Status = issue.StatusOpen
	} else if !n.Status.Valid() {
		return invalid("Invalid status")
	}
	if n.Description != nil && *n.Description == "" {
		n.Description = nil
	}
	return nil
}

func validatePatch(p issue.Patch) error {
	if p.Empty() {
		return invalid("No fields to update")
	}
	if p.Title.Set && (p.Title.Null || strings.TrimSpace(p.Title.Value) == "") {
		return invalid("Title cannot be empty")
	}
	if p.Status.Set && (p.Status.Null || !p.Status.Value.Valid()) {
		return invalid("Invalid status")
	}
	return nil
}

// observe maps repository errors to service errors and counts the outcome.
func (s *Issues) observe(op string, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case IsValidation(err):
		outcome = "invalid"
	case errors.Is(err, repository.ErrNotFound):
		outcome = "not_found"
		err = ErrNotFound
	default:
		outcome = "error"
		s.log.Errorf("%s failed: %+v", op, err)
	}
	metrics.IssueOperations.WithLabelValues(op, outcome).Inc()
	return err
}
