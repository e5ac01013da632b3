package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/billing"
)

type consumptionRow struct {
	UserID string `db:"user_id"`
	Date   string `db:"date"`
	Meals  int    `db:"meals"`
	Waters int    `db:"waters"`
}

type studentDaysRow struct {
	StudentID string `db:"student_id"`
	Days      int    `db:"days"`
}

type dayCountRow struct {
	Date  string `db:"date"`
	Meals int    `db:"meals"`
}

type billingRepository struct {
	repository
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *sqlx.DB) *billingRepository {
	return &billingRepository{repository{db: db}}
}

func (repo billingRepository) UpsertConsumption(ctx context.Context, c billing.Consumption, exec ...core.DBExecutor) error {
	row := consumptionRow{UserID: c.UserID, Date: c.Date.String(), Meals: c.Meals, Waters: c.Waters}
	if _, err := repo.execNamed(ctx, repo.getExec(exec),
		`INSERT INTO consumptions (user_id, date, meals, waters) VALUES (:user_id, :date, :meals, :waters)
		ON CONFLICT (user_id, date) DO UPDATE SET meals = excluded.meals, waters = excluded.waters`,
		row); err != nil {
		return errors.Wrap(err, "upserting consumption")
	}
	return nil
}

func (repo billingRepository) QueryConsumptions(ctx context.Context, period billing.Period, userID string, exec ...core.DBExecutor) ([]billing.Consumption, error) {
	query := "SELECT user_id, date, meals, waters FROM consumptions WHERE date >= ? AND date <= ?"
	args := []interface{}{period.From.String(), period.To.String()}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY date ASC, user_id ASC"

	var rows []consumptionRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying consumptions")
	}
	cons := make([]billing.Consumption, 0, len(rows))
	for _, r := range rows {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, err
		}
		cons = append(cons, billing.Consumption{UserID: r.UserID, Date: d, Meals: r.Meals, Waters: r.Waters})
	}
	return cons, nil
}

func (repo billingRepository) CountMealDays(ctx context.Context, filter billing.MealFilter, exec ...core.DBExecutor) ([]billing.StudentDays, error) {
	where := []string{"a.attends = ?", "a.date >= ?", "a.date <= ?"}
	args := []interface{}{true, filter.Period.From.String(), filter.Period.To.String()}
	if filter.StudentID != "" {
		where = append(where, "a.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		where = append(where, "s.course_id = ?")
		args = append(args, filter.CourseID)
	}

	query := `SELECT a.student_id AS student_id, COUNT(*) AS days
		FROM attendance a JOIN students s ON s.id = a.student_id
		WHERE ` + strings.Join(where, " AND ") + `
		GROUP BY a.student_id ORDER BY a.student_id`

	var rows []studentDaysRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "counting meal days")
	}
	out := make([]billing.StudentDays, 0, len(rows))
	for _, r := range rows {
		out = append(out, billing.StudentDays{StudentID: r.StudentID, Days: r.Days})
	}
	return out, nil
}

func (repo billingRepository) MealsPerDay(ctx context.Context, period billing.Period, exec ...core.DBExecutor) ([]billing.DayCount, error) {
	var rows []dayCountRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		`SELECT date, COUNT(*) AS meals FROM attendance
		WHERE attends = ? AND date >= ? AND date <= ?
		GROUP BY date ORDER BY date`,
		true, period.From.String(), period.To.String()); err != nil {
		return nil, errors.Wrap(err, "counting meals per day")
	}
	out := make([]billing.DayCount, 0, len(rows))
	for _, r := range rows {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, billing.DayCount{Date: d, Meals: r.Meals})
	}
	return out, nil
}
