package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// fakeQuerier records every statement and answers from the configured funcs.
type fakeQuerier struct {
	calls    []call
	execErr  error
	rows     *fakeRows
	queryErr error
	rowFuncs []func(dest ...any) error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql, args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql, args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		return &fakeRows{}, nil
	}
	return f.rows, nil
}

// QueryRow hands out rowFuncs in order, one per call.
func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql, args})
	if len(f.rowFuncs) == 0 {
		return fakeRow{scan: func(...any) error { return errors.New("unexpected QueryRow") }}
	}
	next := f.rowFuncs[0]
	f.rowFuncs = f.rowFuncs[1:]
	return fakeRow{scan: next}
}

func (f *fakeQuerier) last() call {
	return f.calls[len(f.calls)-1]
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func noRows(...any) error { return pgx.ErrNoRows }

func values(vals ...any) func(dest ...any) error {
	return func(dest ...any) error { return assignRow(dest, vals) }
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (f *fakeRows) Close()                                       {}
func (f *fakeRows) Err() error                                   { return nil }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, errors.New("not implemented") }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.idx == 0 || f.idx > len(f.rows) {
		return errors.New("scan called without active row")
	}
	return assignRow(dest, f.rows[f.idx-1])
}

// assignRow copies vals into the scan destinations. A nil value leaves the
// destination at its zero value.
func assignRow(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan into %d columns, have %d", len(dest), len(vals))
	}
	for i, v := range vals {
		if v == nil {
			continue
		}
		target := reflect.ValueOf(dest[i]).Elem()
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("column %d: cannot assign %s to %s", i, val.Type(), target.Type())
		}
		target.Set(val)
	}
	return nil
}

func uniqueErr(constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraint}
}
