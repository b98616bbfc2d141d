package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dzhud/issue-tracker/internal/issue"
)

// MemoryRepo is an in-memory repository used for development and unit tests.
// Returned issues are copies; callers never share state with the store.
type MemoryRepo struct {
	mu     sync.RWMutex
	store  map[int64]*issue.Issue
	lastID int64
	now    func() time.Time
}

func NewMemoryRepo(funcs ...OptionFunc) *MemoryRepo {
	opts := NewOptions(funcs...)
	return &MemoryRepo{
		store: make(map[int64]*issue.Issue),
		now:   clock(opts, time.Microsecond),
	}
}

func (m *MemoryRepo) List(ctx context.Context, f issue.Filter) ([]*issue.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(f.Search)
	out := make([]*issue.Issue, 0, len(m.store))
	for _, i := range m.store {
		if f.Status != "" && i.Status != f.Status {
			continue
		}
		if needle != "" && !matches(i, needle) {
			continue
		}
		out = append(out, clone(i))
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}

func matches(i *issue.Issue, needle string) bool {
	if strings.Contains(strings.ToLower(i.Title), needle) {
		return true
	}
	return i.Description != nil && strings.Contains(strings.ToLower(*i.Description), needle)
}

func (m *MemoryRepo) Get(ctx context.Context, id int64) (*issue.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.store[id]; ok {
		return clone(i), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) Create(ctx context.Context, n issue.NewIssue) (*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	now := m.now()
	i := &issue.Issue{
		ID:          m.lastID,
		Title:       n.Title,
		Description: copyString(n.Description),
		Status:      n.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.store[i.ID] = i
	return clone(i), nil
}

func (m *MemoryRepo) Update(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Apply(i)
	i.UpdatedAt = m.now()
	return clone(i), nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id int64) (*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.store, id)
	return i, nil
}

func (m *MemoryRepo) Ping(ctx context.Context) error {
	return nil
}

func clone(i *issue.Issue) *issue.Issue {
	c := *i
	c.Description = copyString(i.Description)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
