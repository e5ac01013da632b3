package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
)

var (
	// errors
	ErrCourseNotFound  = errors.New("course not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrCourseExists    = errors.New("a course with this name and section already exists")
	ErrCourseNotEmpty  = errors.New("course still has students")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns every course ordered by Course.Order, then section.
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error
		CountStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error)

		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		// SetStudentCourse moves a student; returns ErrStudentNotFound when no row matched.
		SetStudentCourse(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) error
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Courses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		UpdateCourse(ctx context.Context, c Course, uc UpdateCourse) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		Students(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering) ([]Student, error)
		Roster(ctx context.Context, filter *StudentFilter) ([]RosterEntry, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		UpdateStudent(ctx context.Context, s Student, us UpdateStudent) (Student, error)
		SetSupportProgram(ctx context.Context, id string, enrolled bool) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Courses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	return svc.repo.CreateCourse(ctx, Course{Name: nc.Name, Order: nc.Order, Section: nc.Section})
}

func (svc *service) UpdateCourse(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Order != nil {
		c.Order = *uc.Order
	}
	if uc.Section != nil {
		c.Section = *uc.Section
	}
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *service) DeleteCourse(ctx context.Context, id string) error {
	n, err := svc.repo.CountStudents(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	if n > 0 {
		return ErrCourseNotEmpty
	}
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) Students(ctx context.Context, filter *StudentFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// Roster lists students joined with their course, ordered by course then name.
func (svc *service) Roster(ctx context.Context, filter *StudentFilter) ([]RosterEntry, error) {
	courses, err := svc.repo.QueryCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	byID := make(map[string]Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	students, err := svc.repo.QueryStudents(ctx, filter, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	entries := make([]RosterEntry, 0, len(students))
	for _, c := range courses {
		for _, s := range students {
			if s.CourseID == c.ID {
				entries = append(entries, RosterEntry{Student: s, Course: byID[c.ID]})
			}
		}
	}
	return entries, nil
}

func (svc *service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	return svc.repo.CreateStudent(ctx, Student{
		Name:           ns.Name,
		CourseID:       ns.CourseID,
		SupportProgram: ns.SupportProgram,
		SupportOnly:    ns.SupportProgram && ns.SupportOnly,
	})
}

func (svc *service) UpdateStudent(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.CourseID != "" {
		s.CourseID = us.CourseID
	}
	if us.SupportProgram != nil {
		s.SupportProgram = *us.SupportProgram
	}
	if us.SupportOnly != nil {
		s.SupportOnly = *us.SupportOnly
	}
	s.SupportOnly = s.SupportOnly && s.SupportProgram
	return svc.repo.UpdateStudent(ctx, s)
}

// SetSupportProgram enrols or withdraws a student from PT/AL. Withdrawing clears SupportOnly.
func (svc *service) SetSupportProgram(ctx context.Context, id string, enrolled bool) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	s.SupportProgram = enrolled
	s.SupportOnly = enrolled && s.SupportOnly
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}
