package promotion

import (
	"encoding/json"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core/school"
)

// Decision is what happens to an eligible student when a plan is applied.
type Decision int

const (
	Unresolved Decision = iota
	Promote
	Repeat
)

var decisionNames = map[Decision]string{
	Unresolved: "unresolved",
	Promote:    "promote",
	Repeat:     "repeat",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(text []byte) error {
	for k, name := range decisionNames {
		if name == string(text) {
			*d = k
			return nil
		}
	}
	return errors.Errorf("unknown decision %q", text)
}

// ExclusionReason tells why a student cannot be promoted.
type ExclusionReason string

const (
	// ReasonFinalCourse: the course is the last one of the school.
	ReasonFinalCourse ExclusionReason = "final_course"
	// ReasonNoSuccessor: the course has no entry in the promotion map.
	ReasonNoSuccessor ExclusionReason = "no_successor"
	// ReasonMissingCourse: the mapped successor does not exist (or is ambiguous) in the school.
	ReasonMissingCourse ExclusionReason = "missing_course"
)

type Entry struct {
	Student     school.Student `json:"student"`
	Origin      school.Course  `json:"origin"`
	Destination school.Course  `json:"destination"`
	Decision    Decision       `json:"decision"`
}

type Exclusion struct {
	Student school.Student  `json:"student"`
	Course  school.Course   `json:"course"`
	Reason  ExclusionReason `json:"reason"`
}

// Plan is a pending promotion: one Decision per eligible student, plus the students
// that cannot be promoted. It is a plain value passed between BuildPlan and Apply.
type Plan struct {
	Entries  []Entry     `json:"entries"`
	Excluded []Exclusion `json:"excluded"`
}

func (p *Plan) find(studentID string) (int, bool) {
	for i := range p.Entries {
		if p.Entries[i].Student.ID == studentID {
			return i, true
		}
	}
	return 0, false
}

// Set records the decision for an eligible student.
func (p *Plan) Set(studentID string, d Decision) error {
	if _, ok := decisionNames[d]; !ok {
		return errors.Errorf("unknown decision %d", d)
	}
	i, ok := p.find(studentID)
	if !ok {
		return errors.Wrap(ErrNotPromotable, studentID)
	}
	p.Entries[i].Decision = d
	return nil
}

// Repeat keeps the student in their current course.
func (p *Plan) Repeat(studentID string) error { return p.Set(studentID, Repeat) }

// Promote moves the student up, undoing an earlier Repeat.
func (p *Plan) Promote(studentID string) error { return p.Set(studentID, Promote) }

// Decision returns the current decision for a student; ok is false if the student is not promotable.
func (p *Plan) Decision(studentID string) (d Decision, ok bool) {
	i, ok := p.find(studentID)
	if !ok {
		return Unresolved, false
	}
	return p.Entries[i].Decision, true
}

// Promotable reports whether the student is in the plan's eligible set.
func (p *Plan) Promotable(studentID string) bool {
	_, ok := p.find(studentID)
	return ok
}

// Unresolved returns the ids of eligible students with no decision yet.
func (p *Plan) Unresolved() []string {
	var ids []string
	for _, e := range p.Entries {
		if e.Decision != Promote && e.Decision != Repeat {
			ids = append(ids, e.Student.ID)
		}
	}
	return ids
}

// LogEntry records one student moved by a promotion batch.
type LogEntry struct {
	ID                  string     `json:"id"`
	StudentID           string     `json:"student_id"`
	OriginCourseID      string     `json:"origin_course_id"`
	DestinationCourseID string     `json:"destination_course_id"`
	BatchDate           civil.Date `json:"batch_date"`
}

// NewLogEntry checks every field of a LogEntry except the id, assigned by the store.
func NewLogEntry(id, studentID, originID, destinationID string, batch civil.Date) (LogEntry, error) {
	switch {
	case studentID == "":
		return LogEntry{}, errors.New("promotion log: missing student")
	case originID == "" || destinationID == "":
		return LogEntry{}, errors.Errorf("promotion log %s: missing course", studentID)
	case originID == destinationID:
		return LogEntry{}, errors.Errorf("promotion log %s: origin and destination are the same course", studentID)
	case !batch.IsValid():
		return LogEntry{}, errors.Errorf("promotion log %s: invalid batch date", studentID)
	}
	return LogEntry{
		ID:                  id,
		StudentID:           studentID,
		OriginCourseID:      originID,
		DestinationCourseID: destinationID,
		BatchDate:           batch,
	}, nil
}

// Batch groups the log entries written on the same day; it is the unit of undo.
type Batch struct {
	Date    civil.Date `json:"date"`
	Entries []LogEntry `json:"entries"`
}

type Result struct {
	Batch    civil.Date `json:"batch"`
	Promoted []LogEntry `json:"promoted"`
	Repeated int        `json:"repeated"`
	// Missing lists students that disappeared between BuildPlan and Apply.
	Missing []string `json:"missing"`
}

type UndoResult struct {
	Batch    civil.Date `json:"batch"`
	Restored int        `json:"restored"`
	// Missing lists students deleted since the batch; their log entries are dropped anyway.
	Missing []string `json:"missing"`
	// Stranded lists students left in place because their origin course no longer exists.
	Stranded []string `json:"stranded"`
}

var _ json.Marshaler = Plan{}

// MarshalJSON never renders nil slices as null.
func (p Plan) MarshalJSON() ([]byte, error) {
	type plan Plan
	out := plan(p)
	if out.Entries == nil {
		out.Entries = []Entry{}
	}
	if out.Excluded == nil {
		out.Excluded = []Exclusion{}
	}
	return json.Marshal(out)
}
