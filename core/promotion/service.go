// Package promotion moves students up to their next course at the end of the school year.
//
// A promotion is built as a Plan, reviewed (students may be held back), then applied.
// Applying writes one log entry per promoted student, stamped with the day's date;
// Undo reverts the most recent batch date. Two applies on the same day therefore merge
// into a single undo unit. Concurrent operators are not coordinated: the last write wins.
package promotion

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/school"
)

var (
	// errors
	ErrNotConfirmed  = errors.New("promotion not confirmed")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrUnresolved    = errors.New("some students have no decision")
	ErrNotPromotable = errors.New("student is not promotable")
	ErrLogNotFound   = errors.New("promotion log entry not found")
)

type (
	Repository interface {
		InsertLogEntry(ctx context.Context, e LogEntry, exec ...core.DBExecutor) (LogEntry, error)
		// QueryLog returns every entry, most recent batch first.
		QueryLog(ctx context.Context, exec ...core.DBExecutor) ([]LogEntry, error)
		QueryBatch(ctx context.Context, batch civil.Date, exec ...core.DBExecutor) ([]LogEntry, error)
		// LatestBatch returns ok == false when the log is empty.
		LatestBatch(ctx context.Context, exec ...core.DBExecutor) (batch civil.Date, ok bool, err error)
		DeleteLogEntry(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		BuildPlan(ctx context.Context) (Plan, error)
		Apply(ctx context.Context, plan Plan, confirmed bool) (Result, error)
		Undo(ctx context.Context) (UndoResult, error)
		Log(ctx context.Context) ([]Batch, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		schools school.Repository
		conf    *core.Config
		logger  core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(db core.DB, repo Repository, schools school.Repository, conf *core.Config, logger core.Logger) Service {
	return &service{db: db, repo: repo, schools: schools, conf: conf, logger: logger}
}

// BuildPlan pairs every student with the course they would move to.
// Students in a course without a successor are excluded; all others start as Promote.
func (svc *service) BuildPlan(ctx context.Context) (Plan, error) {
	courses, err := svc.schools.QueryCourses(ctx)
	if err != nil {
		return Plan{}, errors.Wrap(err, "querying courses")
	}
	students, err := svc.schools.QueryStudents(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return Plan{}, errors.Wrap(err, "querying students")
	}

	byID := make(map[string]school.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	plan := Plan{Entries: []Entry{}, Excluded: []Exclusion{}}
	// students listed course by course
	for _, c := range courses {
		dest, reason := destination(c, courses)
		for _, s := range students {
			if s.CourseID != c.ID {
				continue
			}
			if reason != "" {
				plan.Excluded = append(plan.Excluded, Exclusion{Student: s, Course: c, Reason: reason})
				continue
			}
			plan.Entries = append(plan.Entries, Entry{Student: s, Origin: c, Destination: dest, Decision: Promote})
		}
	}
	// students pointing at a course that no longer exists
	for _, s := range students {
		if _, ok := byID[s.CourseID]; !ok {
			plan.Excluded = append(plan.Excluded, Exclusion{
				Student: s,
				Course:  school.Course{ID: s.CourseID},
				Reason:  ReasonNoSuccessor,
			})
		}
	}
	return plan, nil
}

// destination resolves the successor of c among courses: same name and section first,
// otherwise the only course with that name.
func destination(c school.Course, courses []school.Course) (school.Course, ExclusionReason) {
	if IsFinal(c.Name) {
		return school.Course{}, ReasonFinalCourse
	}
	next, ok := Next(c.Name)
	if !ok {
		return school.Course{}, ReasonNoSuccessor
	}

	var candidates []school.Course
	for _, other := range courses {
		if normalizeCourseName(other.Name) != next {
			continue
		}
		if other.Section == c.Section {
			return other, ""
		}
		candidates = append(candidates, other)
	}
	if len(candidates) == 1 {
		return candidates[0], ""
	}
	return school.Course{}, ReasonMissingCourse
}

// Apply commits the plan. Without confirmation nothing is written.
// Each promoted student is moved and logged in its own transaction.
func (svc *service) Apply(ctx context.Context, plan Plan, confirmed bool) (Result, error) {
	if !confirmed {
		return Result{}, ErrNotConfirmed
	}
	if ids := plan.Unresolved(); len(ids) > 0 {
		return Result{}, core.NewValidationError(ErrUnresolved, core.FieldError{Field: "decisions", Error: ErrUnresolved.Error()})
	}

	res := Result{Batch: svc.conf.Today(), Promoted: []LogEntry{}, Missing: []string{}}
	for _, e := range plan.Entries {
		if e.Decision == Repeat {
			res.Repeated++
			continue
		}

		entry, err := NewLogEntry("", e.Student.ID, e.Origin.ID, e.Destination.ID, res.Batch)
		if err != nil {
			return res, err
		}
		err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
			if err := svc.schools.SetStudentCourse(ctx, entry.StudentID, entry.DestinationCourseID, tx); err != nil {
				return err
			}
			entry, err = svc.repo.InsertLogEntry(ctx, entry, tx)
			return err
		})
		switch {
		case errors.Cause(err) == school.ErrStudentNotFound:
			res.Missing = append(res.Missing, e.Student.ID)
		case err != nil:
			return res, errors.Wrapf(err, "promoting student %s", e.Student.ID)
		default:
			res.Promoted = append(res.Promoted, entry)
		}
	}

	svc.logger.Info("promotion applied",
		map[string]interface{}{"batch": res.Batch.String(), "promoted": len(res.Promoted), "repeated": res.Repeated})
	return res, nil
}

// Undo reverts the most recent batch: every student goes back to their origin course
// and the batch's log entries are removed, one transaction per entry.
// Students whose origin course was deleted since stay where they are.
func (svc *service) Undo(ctx context.Context) (UndoResult, error) {
	batch, ok, err := svc.repo.LatestBatch(ctx)
	if err != nil {
		return UndoResult{}, errors.Wrap(err, "finding latest batch")
	}
	if !ok {
		return UndoResult{}, ErrNothingToUndo
	}
	entries, err := svc.repo.QueryBatch(ctx, batch)
	if err != nil {
		return UndoResult{}, errors.Wrap(err, "querying batch")
	}

	res := UndoResult{Batch: batch, Missing: []string{}, Stranded: []string{}}
	for _, e := range entries {
		var missing, stranded bool
		err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
			_, err := svc.schools.GetCourse(ctx, e.OriginCourseID, tx)
			switch {
			case errors.Cause(err) == school.ErrCourseNotFound:
				stranded = true
			case err != nil:
				return err
			default:
				err = svc.schools.SetStudentCourse(ctx, e.StudentID, e.OriginCourseID, tx)
				if errors.Cause(err) == school.ErrStudentNotFound {
					missing = true
				} else if err != nil {
					return err
				}
			}
			return svc.repo.DeleteLogEntry(ctx, e.ID, tx)
		})
		if err != nil {
			return res, errors.Wrapf(err, "reverting student %s", e.StudentID)
		}
		switch {
		case stranded:
			res.Stranded = append(res.Stranded, e.StudentID)
		case missing:
			res.Missing = append(res.Missing, e.StudentID)
		default:
			res.Restored++
		}
	}

	svc.logger.Info("promotion undone",
		map[string]interface{}{"batch": batch.String(), "restored": res.Restored})
	return res, nil
}

// Log returns the promotion history grouped by batch, most recent first.
func (svc *service) Log(ctx context.Context) ([]Batch, error) {
	entries, err := svc.repo.QueryLog(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying promotion log")
	}
	batches := []Batch{}
	for _, e := range entries {
		if n := len(batches); n > 0 && batches[n-1].Date == e.BatchDate {
			batches[n-1].Entries = append(batches[n-1].Entries, e)
			continue
		}
		batches = append(batches, Batch{Date: e.BatchDate, Entries: []LogEntry{e}})
	}
	return batches, nil
}
