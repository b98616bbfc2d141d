package sqlbuilder

import "strings"

// SelectBuilder builds `SELECT ... FROM ... [WHERE ...] [ORDER BY ...]`.
type SelectBuilder struct {
	columns []string
	table   string
	where   []Predicate
	orderBy []string
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

// Where adds a predicate. Multiple predicates are ANDed.
func (b *SelectBuilder) Where(p Predicate) *SelectBuilder {
	b.where = append(b.where, p)
	return b
}

func (b *SelectBuilder) OrderBy(exprs ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, exprs...)
	return b
}

func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, ErrNoTable
	}
	w := &writer{}
	w.raw("SELECT ")
	if len(b.columns) == 0 {
		w.raw("*")
	} else {
		w.raw(strings.Join(b.columns, ", "))
	}
	w.raw(" FROM ")
	w.raw(b.table)
	if err := w.where(b.where); err != nil {
		return "", nil, err
	}
	if len(b.orderBy) > 0 {
		w.raw(" ORDER BY ")
		w.raw(strings.Join(b.orderBy, ", "))
	}
	q, args := w.result()
	return q, args, nil
}

// InsertBuilder builds `INSERT INTO t (cols) VALUES (...) [RETURNING ...]`.
type InsertBuilder struct {
	table     string
	values    []Assignment
	returning []string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Value(column string, value any) *InsertBuilder {
	b.values = append(b.values, Assignment{Column: column, Value: value})
	return b
}

func (b *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	b.returning = columns
	return b
}

func (b *InsertBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, ErrNoTable
	}
	if len(b.values) == 0 {
		return "", nil, ErrNoAssignments
	}
	w := &writer{}
	w.raw("INSERT INTO ")
	w.raw(b.table)
	w.raw(" (")
	for i, a := range b.values {
		if i > 0 {
			w.raw(", ")
		}
		w.raw(a.Column)
	}
	w.raw(") VALUES (")
	for i, a := range b.values {
		if i > 0 {
			w.raw(", ")
		}
		if err := w.bind("?", a.Value); err != nil {
			return "", nil, err
		}
	}
	w.raw(")")
	w.returning(b.returning)
	q, args := w.result()
	return q, args, nil
}

// UpdateBuilder builds `UPDATE t SET a = ?, ... WHERE ... [RETURNING ...]`.
// Assignments are rendered in the order Set was called.
type UpdateBuilder struct {
	table     string
	set       []Assignment
	where     []Predicate
	returning []string
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.set = append(b.set, Assignment{Column: column, Value: value})
	return b
}

func (b *UpdateBuilder) Where(p Predicate) *UpdateBuilder {
	b.where = append(b.where, p)
	return b
}

func (b *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	b.returning = columns
	return b
}

func (b *UpdateBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, ErrNoTable
	}
	if len(b.set) == 0 {
		return "", nil, ErrNoAssignments
	}
	w := &writer{}
	w.raw("UPDATE ")
	w.raw(b.table)
	w.raw(" SET ")
	for i, a := range b.set {
		if i > 0 {
			w.raw(", ")
		}
		if err := w.bind(a.Column+" = ?", a.Value); err != nil {
			return "", nil, err
		}
	}
	if err := w.where(b.where); err != nil {
		return "", nil, err
	}
	w.returning(b.returning)
	q, args := w.result()
	return q, args, nil
}

// DeleteBuilder builds `DELETE FROM t WHERE ... [RETURNING ...]`.
type DeleteBuilder struct {
	table     string
	where     []Predicate
	returning []string
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(p Predicate) *DeleteBuilder {
	b.where = append(b.where, p)
	return b
}

func (b *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	b.returning = columns
	return b
}

func (b *DeleteBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, ErrNoTable
	}
	w := &writer{}
	w.raw("DELETE FROM ")
	w.raw(b.table)
	if err := w.where(b.where); err != nil {
		return "", nil, err
	}
	w.returning(b.returning)
	q, args := w.result()
	return q, args, nil
}
