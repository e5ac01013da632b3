package attendance

import (
	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/school"
)

// Record says whether a student eats at the cafeteria on a given day, and why not.
// There is at most one Record per (StudentID, Date).
type Record struct {
	StudentID string     `json:"student_id"`
	Date      civil.Date `json:"date"`
	Attends   bool       `json:"attends"`
	Reason    string     `json:"reason"`
}

// NewRecord checks the key fields of a Record.
func NewRecord(studentID string, date civil.Date, attends bool, reason string) (Record, error) {
	if studentID == "" {
		return Record{}, errors.New("attendance record: missing student")
	}
	if !date.IsValid() {
		return Record{}, errors.Errorf("attendance record %s: invalid date %v", studentID, date)
	}
	return Record{
		StudentID: studentID,
		Date:      date,
		Attends:   attends,
		Reason:    core.CleanString(reason),
	}, nil
}

// Mark is one line of a submitted roll call.
type Mark struct {
	StudentID string `json:"student_id" validate:"required"`
	Attends   bool   `json:"attends"`
	Reason    string `json:"reason" validate:"max=250"`
}

// RollCall is the submitted attendance of a course for one day.
type RollCall struct {
	CourseID string     `json:"course_id" validate:"required"`
	Date     civil.Date `json:"date" validate:"required"`
	Marks    []Mark     `json:"marks" validate:"required,dive"`
}

func (rc *RollCall) Validate(validate *validator.Validate) error {
	rc.CourseID = core.CleanString(rc.CourseID)
	for i := range rc.Marks {
		rc.Marks[i].StudentID = core.CleanString(rc.Marks[i].StudentID)
		rc.Marks[i].Reason = core.CleanString(rc.Marks[i].Reason)
	}
	return validate.Struct(rc)
}

// SheetLine is a student on a roll-call sheet with their current (or default) mark.
type SheetLine struct {
	Student  school.Student `json:"student"`
	Attends  bool           `json:"attends"`
	Reason   string         `json:"reason"`
	Recorded bool           `json:"recorded"`
}

// Sheet is the roll call of a course for one day, ready to be filled in.
type Sheet struct {
	Course school.Course `json:"course"`
	Date   civil.Date    `json:"date"`
	Lines  []SheetLine   `json:"lines"`
}

type CourseCount struct {
	CourseID string `json:"course_id"`
	Course   string `json:"course"`
	Count    int    `json:"count"`
}

type Observation struct {
	StudentID string `json:"student_id"`
	Student   string `json:"student"`
	Course    string `json:"course"`
	Reason    string `json:"reason"`
}

// Summary is what the kitchen needs to know about a day.
type Summary struct {
	Date         civil.Date    `json:"date"`
	Total        int           `json:"total"`
	Courses      []CourseCount `json:"courses"`
	Observations []Observation `json:"observations"`
}

// SupportCourse lists the PT/AL students present in one course.
type SupportCourse struct {
	Course      school.Course    `json:"course"`
	Stage       school.Stage     `json:"stage"`
	Dining      []school.Student `json:"dining"`
	SupportOnly []school.Student `json:"support_only"`
}

type Filter struct {
	Date      civil.Date
	StudentID string
	CourseID  string
}
