package sqlxrepos

import (
	"context"
	"database/sql"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/promotion"
)

type logEntryRow struct {
	ID                  string `db:"id"`
	StudentID           string `db:"student_id"`
	OriginCourseID      string `db:"origin_course_id"`
	DestinationCourseID string `db:"destination_course_id"`
	BatchDate           string `db:"batch_date"`
}

const logEntryColumns = "id, student_id, origin_course_id, destination_course_id, batch_date"

type promotionRepository struct {
	repository
}

var _ promotion.Repository = (*promotionRepository)(nil) // interface compliance check

func NewPromotionRepository(db *sqlx.DB) *promotionRepository {
	return &promotionRepository{repository{db: db}}
}

func (repo promotionRepository) boil(e promotion.LogEntry) logEntryRow {
	return logEntryRow{
		ID:                  e.ID,
		StudentID:           e.StudentID,
		OriginCourseID:      e.OriginCourseID,
		DestinationCourseID: e.DestinationCourseID,
		BatchDate:           e.BatchDate.String(),
	}
}

func (repo promotionRepository) unboilSlice(rows []logEntryRow) ([]promotion.LogEntry, error) {
	entries := make([]promotion.LogEntry, 0, len(rows))
	for _, row := range rows {
		d, err := parseDate(row.BatchDate)
		if err != nil {
			return nil, err
		}
		e, err := promotion.NewLogEntry(row.ID, row.StudentID, row.OriginCourseID, row.DestinationCourseID, d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (repo promotionRepository) InsertLogEntry(ctx context.Context, e promotion.LogEntry, exec ...core.DBExecutor) (promotion.LogEntry, error) {
	e.ID = uuid.New().String()
	if _, err := repo.execNamed(ctx, repo.getExec(exec),
		"INSERT INTO promotion_log ("+logEntryColumns+`)
		VALUES (:id, :student_id, :origin_course_id, :destination_course_id, :batch_date)`,
		repo.boil(e)); err != nil {
		return promotion.LogEntry{}, errors.Wrap(err, "inserting promotion log entry")
	}
	return e, nil
}

func (repo promotionRepository) QueryLog(ctx context.Context, exec ...core.DBExecutor) ([]promotion.LogEntry, error) {
	var rows []logEntryRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		"SELECT "+logEntryColumns+" FROM promotion_log ORDER BY batch_date DESC, student_id ASC"); err != nil {
		return nil, errors.Wrap(err, "querying promotion log")
	}
	return repo.unboilSlice(rows)
}

func (repo promotionRepository) QueryBatch(ctx context.Context, batch civil.Date, exec ...core.DBExecutor) ([]promotion.LogEntry, error) {
	var rows []logEntryRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		"SELECT "+logEntryColumns+" FROM promotion_log WHERE batch_date = ? ORDER BY student_id ASC", batch.String()); err != nil {
		return nil, errors.Wrap(err, "querying promotion batch")
	}
	return repo.unboilSlice(rows)
}

func (repo promotionRepository) LatestBatch(ctx context.Context, exec ...core.DBExecutor) (civil.Date, bool, error) {
	var latest sql.NullString
	if err := repo.getExec(exec).QueryRowContext(ctx, "SELECT MAX(batch_date) FROM promotion_log").Scan(&latest); err != nil {
		return civil.Date{}, false, errors.Wrap(err, "querying latest batch")
	}
	if !latest.Valid || latest.String == "" {
		return civil.Date{}, false, nil
	}
	d, err := parseDate(latest.String)
	if err != nil {
		return civil.Date{}, false, err
	}
	return d, true, nil
}

func (repo promotionRepository) DeleteLogEntry(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM promotion_log WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting promotion log entry")
	}
	if n == 0 {
		return promotion.ErrLogNotFound
	}
	return nil
}
