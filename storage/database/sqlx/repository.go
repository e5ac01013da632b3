package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
)

// Repositories share a *sqlx.DB for binding and mapping but run their statements
// against whatever executor the service hands in (the DB itself or a *sql.Tx).
type repository struct {
	db *sqlx.DB
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// selectAll rebinds query for the driver, runs it and scans every row into dest (pointer to slice).
func (repo repository) selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	if err = sqlx.StructScan(rows, dest); err != nil {
		return err
	}
	return rows.Err()
}

func (repo repository) exec(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int64, error) {
	res, err := exec.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// execNamed expands :name parameters from arg before running the statement.
func (repo repository) execNamed(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (int64, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	return repo.exec(ctx, exec, q, args...)
}

func (repo repository) count(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int, error) {
	var n int
	if err := exec.QueryRowContext(ctx, repo.db.Rebind(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// getOne scans the first row of query, returning sql.ErrNoRows when there is none.
func getOne[T any](ctx context.Context, repo repository, exec core.DBExecutor, query string, args ...interface{}) (T, error) {
	var (
		rows []T
		zero T
	)
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, sql.ErrNoRows
	}
	return rows[0], nil
}

// trapNoRowsErr maps the driver "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, errors.Wrapf(err, "parsing stored date %q", s)
	}
	return d, nil
}

func orderBy(ordering []core.DBOrdering, allowed map[string]string, fallback string) string {
	clause := ""
	for _, ord := range ordering {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		if clause != "" {
			clause += ", "
		}
		clause += core.DBOrdering{Field: col, Ascending: ord.Ascending}.String()
	}
	if clause == "" {
		clause = fallback
	}
	return " ORDER BY " + clause
}
