package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/attendance"
)

type attendanceRow struct {
	StudentID string `db:"student_id"`
	Date      string `db:"date"`
	Attends   bool   `db:"attends"`
	Reason    string `db:"reason"`
}

type attendanceRepository struct {
	repository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{repository{db: db}}
}

func (repo attendanceRepository) boil(r attendance.Record) attendanceRow {
	return attendanceRow{StudentID: r.StudentID, Date: r.Date.String(), Attends: r.Attends, Reason: r.Reason}
}

func (repo attendanceRepository) unboil(row attendanceRow) (attendance.Record, error) {
	d, err := parseDate(row.Date)
	if err != nil {
		return attendance.Record{}, err
	}
	return attendance.NewRecord(row.StudentID, d, row.Attends, row.Reason)
}

func (repo attendanceRepository) UpsertRecords(ctx context.Context, recs []attendance.Record, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	for _, r := range recs {
		_, err := repo.execNamed(ctx, ex,
			`INSERT INTO attendance (student_id, date, attends, reason) VALUES (:student_id, :date, :attends, :reason)
			ON CONFLICT (student_id, date) DO UPDATE SET attends = excluded.attends, reason = excluded.reason`,
			repo.boil(r))
		if err != nil {
			return errors.Wrapf(err, "upserting attendance of %s on %s", r.StudentID, r.Date)
		}
	}
	return nil
}

func (repo attendanceRepository) QueryRecords(ctx context.Context, filter attendance.Filter, exec ...core.DBExecutor) ([]attendance.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.Date.IsZero() {
		where = append(where, "a.date = ?")
		args = append(args, filter.Date.String())
	}
	if filter.StudentID != "" {
		where = append(where, "a.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		where = append(where, "s.course_id = ?")
		args = append(args, filter.CourseID)
	}

	query := `SELECT a.student_id, a.date, a.attends, a.reason
		FROM attendance a JOIN students s ON s.id = a.student_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.date ASC, a.student_id ASC"

	var rows []attendanceRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		r, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}
