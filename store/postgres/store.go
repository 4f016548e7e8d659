package pgstore

import (
	"context"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/escolabr/escola/store"
)

// Store is a store.Client backed by a Postgres database, for self-hosted
// deployments. Table and column names originate in the row codecs, never in
// request input.
type Store struct {
	db *sqlx.DB
}

var _ store.Client = (*Store)(nil) // interface compliance check

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Select(ctx context.Context, table string, filter store.Filter) ([]store.Row, error) {
	where, args := buildWhere(filter)
	query := s.db.Rebind("SELECT * FROM " + table + where)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting from %s", table)
	}
	defer func() { _ = rows.Close() }()

	var result []store.Row
	for rows.Next() {
		row := make(map[string]interface{})
		if err = rows.MapScan(row); err != nil {
			return nil, errors.Wrapf(err, "scanning %s row", table)
		}
		result = append(result, store.Row(row))
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s rows", table)
	}
	return result, nil
}

func (s *Store) Insert(ctx context.Context, table string, rows []store.Row) ([]store.Row, error) {
	inserted := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		cols := sortedColumns(row)
		args := make([]interface{}, 0, len(cols))
		marks := make([]string, 0, len(cols))
		for _, col := range cols {
			args = append(args, row[col])
			marks = append(marks, "?")
		}
		query := s.db.Rebind(
			"INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ")" +
				" VALUES (" + strings.Join(marks, ", ") + ") RETURNING *",
		)

		stored := make(map[string]interface{})
		if err := s.db.QueryRowxContext(ctx, query, args...).MapScan(stored); err != nil {
			return nil, errors.Wrapf(err, "inserting into %s", table)
		}
		inserted = append(inserted, store.Row(stored))
	}
	return inserted, nil
}

func (s *Store) Update(ctx context.Context, table string, patch store.Row, filter store.Filter) error {
	if len(patch) == 0 {
		return nil
	}
	cols := sortedColumns(patch)
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, patch[col])
	}
	where, whereArgs := buildWhere(filter)
	args = append(args, whereArgs...)

	query := s.db.Rebind("UPDATE " + table + " SET " + strings.Join(sets, ", ") + where)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "updating %s", table)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, filter store.Filter) error {
	where, args := buildWhere(filter)
	query := s.db.Rebind("DELETE FROM " + table + where)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	return nil
}

// buildWhere renders the filter as a WHERE clause with `?` bindvars, to be
// rebound for the pq driver. Predicates are rendered in sorted column order so
// generated SQL is deterministic.
func buildWhere(filter store.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	eqCols := make([]string, 0, len(filter.Eq))
	for col := range filter.Eq {
		eqCols = append(eqCols, col)
	}
	sort.Strings(eqCols)
	for _, col := range eqCols {
		if filter.Eq[col] == nil {
			conds = append(conds, col+" IS NULL")
			continue
		}
		conds = append(conds, col+" = ?")
		args = append(args, filter.Eq[col])
	}

	inCols := make([]string, 0, len(filter.In))
	for col := range filter.In {
		inCols = append(inCols, col)
	}
	sort.Strings(inCols)
	for _, col := range inCols {
		vals := filter.In[col]
		if len(vals) == 0 {
			conds = append(conds, "FALSE") // empty IN matches nothing
			continue
		}
		marks := make([]string, len(vals))
		for i, val := range vals {
			marks[i] = "?"
			args = append(args, val)
		}
		conds = append(conds, col+" IN ("+strings.Join(marks, ", ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func sortedColumns(row store.Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
