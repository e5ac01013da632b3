package school

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
)

// Course is a class/grade group owning zero or more students.
type Course struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Section string `json:"section"`
}

// Label is the display name of the course, section included.
func (c Course) Label() string {
	if c.Section == "" {
		return c.Name
	}
	return c.Name + " " + c.Section
}

// LoadCourse builds a Course read from the store, checking the fields every course must have.
func LoadCourse(id, name string, order int, section string) (Course, error) {
	if id == "" {
		return Course{}, errors.New("course: missing id")
	}
	if strings.TrimSpace(name) == "" {
		return Course{}, errors.Errorf("course %s: missing name", id)
	}
	return Course{ID: id, Name: name, Order: order, Section: section}, nil
}

type Student struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CourseID       string `json:"course_id"`
	SupportProgram bool   `json:"support_program"` // PT/AL
	SupportOnly    bool   `json:"support_only"`    // attends PT/AL but does not eat
}

// LoadStudent builds a Student read from the store, checking the fields every student must have.
func LoadStudent(id, name, courseID string, supportProgram, supportOnly bool) (Student, error) {
	if id == "" {
		return Student{}, errors.New("student: missing id")
	}
	if strings.TrimSpace(name) == "" {
		return Student{}, errors.Errorf("student %s: missing name", id)
	}
	if courseID == "" {
		return Student{}, errors.Errorf("student %s: missing course", id)
	}
	return Student{
		ID:             id,
		Name:           name,
		CourseID:       courseID,
		SupportProgram: supportProgram,
		SupportOnly:    supportOnly,
	}, nil
}

// RosterEntry is a student joined with their course.
type RosterEntry struct {
	Student
	Course Course `json:"course"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name    string `json:"name" validate:"notblank"`
	Order   int    `json:"order" validate:"gte=0"`
	Section string `json:"section" validate:"omitempty,max=2,alphanum"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Section = strings.ToUpper(core.CleanString(nc.Section))
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Name    string  `json:"name"`
	Order   *int    `json:"order" validate:"omitempty,gte=0"`
	Section *string `json:"section" validate:"omitempty,max=2"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	if uc.Section != nil {
		s := strings.ToUpper(core.CleanString(*uc.Section))
		uc.Section = &s
	}
	return validate.Struct(uc)
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name           string `json:"name" validate:"notblank"`
	CourseID       string `json:"course_id" validate:"required"`
	SupportProgram bool   `json:"support_program"`
	SupportOnly    bool   `json:"support_only"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.CourseID = core.CleanString(ns.CourseID)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return checkCourseExists(ctx, svc, ns.CourseID)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name           string `json:"name"`
	CourseID       string `json:"course_id"`
	SupportProgram *bool  `json:"support_program"`
	SupportOnly    *bool  `json:"support_only"`
}

func (us *UpdateStudent) Validate(ctx context.Context, svc Service) error {
	us.Name = core.CleanString(us.Name)
	us.CourseID = core.CleanString(us.CourseID)
	if us.CourseID == "" {
		return nil
	}
	return checkCourseExists(ctx, svc, us.CourseID)
}

func checkCourseExists(ctx context.Context, svc Service, courseID string) error {
	if _, err := svc.GetCourse(ctx, courseID); err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding course")
	}
	return nil
}

type StudentFilter struct {
	CourseID       string `query:"course_id"`
	Search         string `query:"search"`
	SupportProgram *bool  `query:"support_program"`
}

func (sf *StudentFilter) Clean() {
	sf.CourseID = core.CleanString(sf.CourseID)
	sf.Search = core.CleanString(sf.Search)
}
