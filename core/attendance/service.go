// Package attendance keeps the daily cafeteria register: who eats each day and the
// observations the kitchen has to know about.
package attendance

import (
	"context"
	"net/mail"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/school"
)

type (
	Repository interface {
		// UpsertRecords inserts records, replacing any existing one with the same (student, date).
		UpsertRecords(ctx context.Context, recs []Record, exec ...core.DBExecutor) error
		QueryRecords(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Record, error)
	}

	Service interface {
		RollCall(ctx context.Context, courseID string, date civil.Date) (Sheet, error)
		Submit(ctx context.Context, rc RollCall) ([]Record, error)
		DailySummary(ctx context.Context, date civil.Date) (Summary, error)
		SupportPresence(ctx context.Context, date civil.Date) ([]SupportCourse, error)
		MailDailySummary(ctx context.Context, date civil.Date) (Summary, error)
	}

	service struct {
		db     core.DB
		repo   Repository
		school school.Service
		mailer core.EmailService
		conf   *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(db core.DB, repo Repository, schoolSvc school.Service, mailer core.EmailService, conf *core.Config) Service {
	return &service{db: db, repo: repo, school: schoolSvc, mailer: mailer, conf: conf}
}

// RollCall lists the students of a course with what was recorded for them on date.
// Students without a record default to attending with no reason.
func (svc *service) RollCall(ctx context.Context, courseID string, date civil.Date) (Sheet, error) {
	course, err := svc.school.GetCourse(ctx, courseID)
	if err != nil {
		return Sheet{}, err
	}
	students, err := svc.school.Students(ctx, &school.StudentFilter{CourseID: courseID}, nil)
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying students")
	}
	recs, err := svc.repo.QueryRecords(ctx, Filter{Date: date, CourseID: courseID})
	if err != nil {
		return Sheet{}, errors.Wrap(err, "querying attendance")
	}
	byStudent := make(map[string]Record, len(recs))
	for _, r := range recs {
		byStudent[r.StudentID] = r
	}

	sheet := Sheet{Course: course, Date: date, Lines: make([]SheetLine, 0, len(students))}
	for _, s := range students {
		line := SheetLine{Student: s, Attends: true}
		if r, ok := byStudent[s.ID]; ok {
			line.Attends = r.Attends
			line.Reason = r.Reason
			line.Recorded = true
		}
		sheet.Lines = append(sheet.Lines, line)
	}
	return sheet, nil
}

// Submit stores a roll call. Re-submitting the same day replaces the previous marks.
func (svc *service) Submit(ctx context.Context, rc RollCall) ([]Record, error) {
	recs := make([]Record, 0, len(rc.Marks))
	for _, m := range rc.Marks {
		r, err := NewRecord(m.StudentID, rc.Date, m.Attends, m.Reason)
		if err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "marks", Error: err.Error()})
		}
		recs = append(recs, r)
	}

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		return svc.repo.UpsertRecords(ctx, recs, tx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "saving roll call")
	}
	return recs, nil
}

// DailySummary counts the students recorded as eating on date, per course,
// and collects the reasons noted for them.
func (svc *service) DailySummary(ctx context.Context, date civil.Date) (Summary, error) {
	recs, err := svc.repo.QueryRecords(ctx, Filter{Date: date})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying attendance")
	}
	roster, err := svc.school.Roster(ctx, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying roster")
	}
	byStudent := make(map[string]school.RosterEntry, len(roster))
	for _, e := range roster {
		byStudent[e.ID] = e
	}
	courses, err := svc.school.Courses(ctx)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying courses")
	}

	sum := Summary{Date: date, Courses: []CourseCount{}, Observations: []Observation{}}
	counts := make(map[string]int)
	for _, r := range recs {
		entry, ok := byStudent[r.StudentID]
		if !ok || !r.Attends {
			continue
		}
		sum.Total++
		counts[entry.Course.ID]++
		if r.Reason != "" {
			sum.Observations = append(sum.Observations, Observation{
				StudentID: entry.ID,
				Student:   entry.Name,
				Course:    entry.Course.Label(),
				Reason:    r.Reason,
			})
		}
	}
	for _, c := range courses {
		if n := counts[c.ID]; n > 0 {
			sum.Courses = append(sum.Courses, CourseCount{CourseID: c.ID, Course: c.Label(), Count: n})
		}
	}
	sort.SliceStable(sum.Observations, func(i, j int) bool {
		return sum.Observations[i].Student < sum.Observations[j].Student
	})
	return sum, nil
}

// SupportPresence lists the PT/AL students recorded as present on date, grouped by course.
func (svc *service) SupportPresence(ctx context.Context, date civil.Date) ([]SupportCourse, error) {
	recs, err := svc.repo.QueryRecords(ctx, Filter{Date: date})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	present := make(map[string]bool, len(recs))
	for _, r := range recs {
		if r.Attends {
			present[r.StudentID] = true
		}
	}

	enrolled := true
	roster, err := svc.school.Roster(ctx, &school.StudentFilter{SupportProgram: &enrolled})
	if err != nil {
		return nil, errors.Wrap(err, "querying roster")
	}

	var (
		groups []SupportCourse
		index  = make(map[string]int)
	)
	for _, e := range roster {
		if !present[e.ID] {
			continue
		}
		i, ok := index[e.Course.ID]
		if !ok {
			i = len(groups)
			index[e.Course.ID] = i
			groups = append(groups, SupportCourse{
				Course:      e.Course,
				Stage:       school.StageOf(e.Course.Name),
				Dining:      []school.Student{},
				SupportOnly: []school.Student{},
			})
		}
		if e.SupportOnly {
			groups[i].SupportOnly = append(groups[i].SupportOnly, e.Student)
		} else {
			groups[i].Dining = append(groups[i].Dining, e.Student)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Course.Label() < groups[j].Course.Label()
	})
	for _, g := range groups {
		sortStudents(g.Dining)
		sortStudents(g.SupportOnly)
	}
	if groups == nil {
		groups = []SupportCourse{}
	}
	return groups, nil
}

func sortStudents(students []school.Student) {
	sort.SliceStable(students, func(i, j int) bool { return students[i].Name < students[j].Name })
}

// MailDailySummary sends the day's summary to the kitchen.
func (svc *service) MailDailySummary(ctx context.Context, date civil.Date) (Summary, error) {
	sum, err := svc.DailySummary(ctx, date)
	if err != nil {
		return Summary{}, err
	}
	if svc.conf.KitchenEmail == "" {
		return Summary{}, errors.New("kitchen email is not configured")
	}
	to, err := mail.ParseAddress(svc.conf.KitchenEmail)
	if err != nil {
		return Summary{}, errors.Wrap(err, "parsing kitchen email")
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{*to},
		Subject:      "Resumen de comedor " + date.String(),
		TemplateName: "daily_summary",
		TemplateData: sum,
	})
	return sum, nil
}
