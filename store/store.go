package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Tables served by the remote store.
const (
	TableStudents    = "students"
	TableProfiles    = "profiles" // user accounts; teachers carry role "professor"
	TableSubjects    = "subjects"
	TableClasses     = "classes"
	TableAttendances = "attendances"
	TableGrades      = "grades"
)

var ErrNotFound = errors.New("row not found")

type (
	// Row is a single table row keyed by snake_case column names.
	// Values are scalars (string, number, bool) or nil for SQL NULL.
	Row map[string]interface{}

	// Filter is an AND-combined set of predicates on snake_case columns.
	// A zero Filter matches every row.
	Filter struct {
		Eq map[string]interface{}
		In map[string][]string
	}

	// Client is a generic CRUD client for a remote relational store.
	Client interface {
		Select(ctx context.Context, table string, filter Filter) ([]Row, error)
		// Insert writes rows and returns them as stored, ids assigned.
		Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
		Update(ctx context.Context, table string, patch Row, filter Filter) error
		Delete(ctx context.Context, table string, filter Filter) error
	}
)

// Eq returns a Filter matching rows whose column equals value.
func Eq(column string, value interface{}) Filter {
	return Filter{Eq: map[string]interface{}{column: value}}
}

// In returns a Filter matching rows whose column is any of values.
func In(column string, values []string) Filter {
	return Filter{In: map[string][]string{column: values}}
}

// AndEq returns a copy of f with an extra equality predicate.
func (f Filter) AndEq(column string, value interface{}) Filter {
	eq := make(map[string]interface{}, len(f.Eq)+1)
	for k, v := range f.Eq {
		eq[k] = v
	}
	eq[column] = value
	return Filter{Eq: eq, In: f.In}
}

func (f Filter) IsZero() bool {
	return len(f.Eq) == 0 && len(f.In) == 0
}

// Matches reports whether row satisfies every predicate in f.
func (f Filter) Matches(row Row) bool {
	for col, want := range f.Eq {
		if !valueEqual(row[col], want) {
			return false
		}
	}
	for col, wants := range f.In {
		var found bool
		for _, want := range wants {
			if valueEqual(row[col], want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// valueEqual compares scalar row values across the concrete types the
// different client implementations produce (driver ints, JSON floats, []byte).
func valueEqual(a, b interface{}) bool {
	na, nb := normalize(a), normalize(b)
	if na == nil || nb == nil {
		return na == nb
	}
	if na == nb {
		return true
	}
	return fmt.Sprint(na) == fmt.Sprint(nb)
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case *string:
		if val == nil {
			return nil
		}
		return *val
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// Clone returns a shallow copy of the row; values are scalars so this is a
// full copy for our purposes.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// String returns the row value as a string; nil/absent values yield "".
func (r Row) String(col string) string {
	switch val := r[col].(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// Int returns the row value as an int; nil/absent values yield 0.
func (r Row) Int(col string) int {
	switch val := r[col].(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float32:
		return int(val)
	case float64:
		return int(val)
	case json.Number:
		i, _ := val.Int64()
		return int(i)
	default:
		return 0
	}
}

// Float returns the row value as a float64; nil/absent values yield 0.
func (r Row) Float(col string) float64 {
	switch val := r[col].(type) {
	case float32:
		return float64(val)
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	default:
		return 0
	}
}

// Bool returns the row value as a bool; nil/absent values yield false.
func (r Row) Bool(col string) bool {
	val, _ := r[col].(bool)
	return val
}
