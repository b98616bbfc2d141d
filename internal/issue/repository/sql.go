package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Dzhud/issue-tracker/internal/database/sqlbuilder"
	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const issuesTable = "issues"

var issueColumns = []string{"id", "title", "description", "status", "created_at", "updated_at"}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS issues (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL CHECK (title <> ''),
	description TEXT,
	status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in-progress', 'closed')),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

const postgresSchema = `CREATE TABLE IF NOT EXISTS issues (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL CHECK (title <> ''),
	description TEXT,
	status VARCHAR(20) NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in-progress', 'closed')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const createdAtIndex = `CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues (created_at DESC, id DESC)`

// SQLRepo stores issues in a relational table through a gorm connection
// pool. Statements are assembled with sqlbuilder and run as raw SQL; gorm
// rewrites the `?` markers into the dialect's bind variables.
type SQLRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLRepo(db *gorm.DB, funcs ...OptionFunc) *SQLRepo {
	opts := NewOptions(funcs...)
	return &SQLRepo{db: db, now: clock(opts, time.Microsecond)}
}

func (r *SQLRepo) dialect() string {
	return r.db.Dialector.Name()
}

// EnsureSchema creates the issues table and its ordering index when missing.
func (r *SQLRepo) EnsureSchema(ctx context.Context) error {
	schema := sqliteSchema
	if r.dialect() == "postgres" {
		schema = postgresSchema
	}
	db := r.db.WithContext(ctx)
	if err := db.Exec(schema).Error; err != nil {
		return errors.Wrap(err, "create issues table")
	}
	if err := db.Exec(createdAtIndex).Error; err != nil {
		return errors.Wrap(err, "create issues index")
	}
	return nil
}

func (r *SQLRepo) List(ctx context.Context, f issue.Filter) ([]*issue.Issue, error) {
	b := sqlbuilder.Select(issueColumns...).From(issuesTable)
	if f.Status != "" {
		b.Where(sqlbuilder.Eq("status", string(f.Status)))
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		b.Where(sqlbuilder.Or(
			sqlbuilder.Expr(`LOWER(title) LIKE ? ESCAPE '\'`, pattern),
			sqlbuilder.Expr(`LOWER(description) LIKE ? ESCAPE '\'`, pattern),
		))
	}
	b.OrderBy("created_at DESC", "id DESC")
	q, args, err := b.Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return r.query(ctx, q, args)
}

func (r *SQLRepo) Get(ctx context.Context, id int64) (*issue.Issue, error) {
	q, args, err := sqlbuilder.Select(issueColumns...).
		From(issuesTable).
		Where(sqlbuilder.Eq("id", id)).
		Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return r.queryOne(ctx, q, args)
}

func (r *SQLRepo) Create(ctx context.Context, n issue.NewIssue) (*issue.Issue, error) {
	now := r.timeValue(r.now())
	var description any
	if n.Description != nil {
		description = *n.Description
	}
	q, args, err := sqlbuilder.InsertInto(issuesTable).
		Value("title", n.Title).
		Value("description", description).
		Value("status", string(n.Status)).
		Value("created_at", now).
		Value("updated_at", now).
		Returning(issueColumns...).
		Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return r.queryOne(ctx, q, args)
}

func (r *SQLRepo) Update(ctx context.Context, id int64, p issue.Patch) (*issue.Issue, error) {
	b := sqlbuilder.Update(issuesTable)
	for _, f := range p.Fields() {
		b.Set(f.Column, f.Value)
	}
	b.Set("updated_at", r.timeValue(r.now())).
		Where(sqlbuilder.Eq("id", id)).
		Returning(issueColumns...)
	q, args, err := b.Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return r.queryOne(ctx, q, args)
}

func (r *SQLRepo) Delete(ctx context.Context, id int64) (*issue.Issue, error) {
	q, args, err := sqlbuilder.DeleteFrom(issuesTable).
		Where(sqlbuilder.Eq("id", id)).
		Returning(issueColumns...).
		Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return r.queryOne(ctx, q, args)
}

func (r *SQLRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.PingContext(ctx))
}

// Close releases the underlying connection pool.
func (r *SQLRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.Close())
}

func (r *SQLRepo) queryOne(ctx context.Context, q string, args []any) (*issue.Issue, error) {
	list, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (r *SQLRepo) query(ctx context.Context, q string, args []any) ([]*issue.Issue, error) {
	rows, err := r.db.WithContext(ctx).Raw(q, args...).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "query %q", q)
	}
	defer rows.Close()

	out := []*issue.Issue{}
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

func scanIssue(rows *sql.Rows) (*issue.Issue, error) {
	var (
		i           issue.Issue
		description sql.NullString
		status      string
		created     sqlTime
		updated     sqlTime
	)
	if err := rows.Scan(&i.ID, &i.Title, &description, &status, &created, &updated); err != nil {
		return nil, errors.WithStack(err)
	}
	if description.Valid {
		d := description.String
		i.Description = &d
	}
	i.Status = issue.Status(status)
	i.CreatedAt = created.Time
	i.UpdatedAt = updated.Time
	return &i, nil
}

// sqliteTimeLayout is fixed width so that lexical order of the stored text
// matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func (r *SQLRepo) timeValue(t time.Time) any {
	if r.dialect() == "sqlite" {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}

// sqlTime scans timestamps that arrive either as time.Time (Postgres, typed
// SQLite columns) or as text (SQLite RETURNING clauses).
type sqlTime struct {
	time.Time
}

var sqlTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return errors.Errorf("unsupported timestamp type %T", src)
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range sqlTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return errors.Errorf("unparseable timestamp %q", s)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
