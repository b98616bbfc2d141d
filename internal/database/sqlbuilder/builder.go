// Package sqlbuilder assembles parameterized statements from ordered
// (column, value) assignments and predicates. Statements use `?` markers,
// which gorm rewrites into the dialect's bind variables. Arguments are
// collected from the same ordered list that emits the markers, so positions
// and values cannot drift apart.
package sqlbuilder

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNoTable       = errors.New("sqlbuilder: no table")
	ErrNoAssignments = errors.New("sqlbuilder: no assignments")
	ErrArgMismatch   = errors.New("sqlbuilder: placeholder/argument count mismatch")
)

// Assignment is one `column = value` pair.
type Assignment struct {
	Column string
	Value  any
}

// Predicate is a SQL fragment whose `?` markers bind Args in order.
type Predicate struct {
	SQL  string
	Args []any
}

// Expr builds a predicate from a raw fragment.
func Expr(sql string, args ...any) Predicate {
	return Predicate{SQL: sql, Args: args}
}

// Eq builds `column = ?`.
func Eq(column string, value any) Predicate {
	return Predicate{SQL: column + " = ?", Args: []any{value}}
}

// Or joins predicates with OR inside parentheses.
func Or(preds ...Predicate) Predicate {
	return join(" OR ", preds)
}

func join(sep string, preds []Predicate) Predicate {
	parts := make([]string, 0, len(preds))
	var args []any
	for _, p := range preds {
		parts = append(parts, p.SQL)
		args = append(args, p.Args...)
	}
	return Predicate{SQL: "(" + strings.Join(parts, sep) + ")", Args: args}
}

// writer accumulates SQL text and the arguments bound by each fragment.
type writer struct {
	sb   strings.Builder
	args []any
}

func (w *writer) raw(s string) {
	w.sb.WriteString(s)
}

func (w *writer) bind(fragment string, args ...any) error {
	markers := strings.Count(fragment, "?")
	if markers != len(args) {
		return errors.Wrapf(ErrArgMismatch, "%q has %d markers for %d args", fragment, markers, len(args))
	}
	w.sb.WriteString(fragment)
	w.args = append(w.args, args...)
	return nil
}

func (w *writer) where(preds []Predicate) error {
	for i, p := range preds {
		if i == 0 {
			w.raw(" WHERE ")
		} else {
			w.raw(" AND ")
		}
		if err := w.bind(p.SQL, p.Args...); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) returning(columns []string) {
	if len(columns) > 0 {
		w.raw(" RETURNING ")
		w.raw(strings.Join(columns, ", "))
	}
}

func (w *writer) result() (string, []any) {
	if w.args == nil {
		w.args = []any{}
	}
	return w.sb.String(), w.args
}
