package sqlxrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/school"
)

type courseRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Order   int    `db:"sort_order"`
	Section string `db:"section"`
}

type studentRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	CourseID       string `db:"course_id"`
	SupportProgram bool   `db:"support_program"`
	SupportOnly    bool   `db:"support_only"`
}

const (
	courseColumns  = "id, name, sort_order, section"
	studentColumns = "id, name, course_id, support_program, support_only"
)

var studentOrdering = map[string]string{
	"name":      "name",
	"course_id": "course_id",
}

type schoolRepository struct {
	repository
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{repository{db: db}}
}

func (repo schoolRepository) boilCourse(c school.Course) courseRow {
	return courseRow{ID: c.ID, Name: c.Name, Order: c.Order, Section: c.Section}
}

func (repo schoolRepository) unboilCourses(rows []courseRow) ([]school.Course, error) {
	courses := make([]school.Course, 0, len(rows))
	for _, r := range rows {
		c, err := school.LoadCourse(r.ID, r.Name, r.Order, r.Section)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (repo schoolRepository) boilStudent(s school.Student) studentRow {
	return studentRow{
		ID:             s.ID,
		Name:           s.Name,
		CourseID:       s.CourseID,
		SupportProgram: s.SupportProgram,
		SupportOnly:    s.SupportOnly,
	}
}

func (repo schoolRepository) unboilStudents(rows []studentRow) ([]school.Student, error) {
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		s, err := school.LoadStudent(r.ID, r.Name, r.CourseID, r.SupportProgram, r.SupportOnly)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, nil
}

func (repo schoolRepository) checkCourseUniqueness(ctx context.Context, c school.Course, exec core.DBExecutor) error {
	n, err := repo.count(ctx, exec, "SELECT COUNT(*) FROM courses WHERE name = ? AND section = ? AND id <> ?", c.Name, c.Section, c.ID)
	if err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	if n > 0 {
		return school.ErrCourseExists
	}
	return nil
}

func (repo schoolRepository) CreateCourse(ctx context.Context, c school.Course, exec ...core.DBExecutor) (school.Course, error) {
	ex := repo.getExec(exec)
	c.ID = uuid.New().String()
	if err := repo.checkCourseUniqueness(ctx, c, ex); err != nil {
		return school.Course{}, err
	}
	row := repo.boilCourse(c)
	if _, err := repo.execNamed(ctx, ex,
		"INSERT INTO courses ("+courseColumns+") VALUES (:id, :name, :sort_order, :section)", row); err != nil {
		return school.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo schoolRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]school.Course, error) {
	var rows []courseRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		"SELECT "+courseColumns+" FROM courses ORDER BY sort_order ASC, section ASC, name ASC"); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return repo.unboilCourses(rows)
}

func (repo schoolRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (school.Course, error) {
	row, err := getOne[courseRow](ctx, repo.repository, repo.getExec(exec),
		"SELECT "+courseColumns+" FROM courses WHERE id = ?", id)
	if err != nil {
		return school.Course{}, trapNoRowsErr(err, school.ErrCourseNotFound, "getting course")
	}
	return school.LoadCourse(row.ID, row.Name, row.Order, row.Section)
}

func (repo schoolRepository) UpdateCourse(ctx context.Context, c school.Course, exec ...core.DBExecutor) (school.Course, error) {
	ex := repo.getExec(exec)
	if err := repo.checkCourseUniqueness(ctx, c, ex); err != nil {
		return school.Course{}, err
	}
	n, err := repo.execNamed(ctx, ex,
		"UPDATE courses SET name = :name, sort_order = :sort_order, section = :section WHERE id = :id",
		repo.boilCourse(c))
	if err != nil {
		return school.Course{}, errors.Wrap(err, "updating course")
	}
	if n == 0 {
		return school.Course{}, school.ErrCourseNotFound
	}
	return c, nil
}

func (repo schoolRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM courses WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n == 0 {
		return school.ErrCourseNotFound
	}
	return nil
}

func (repo schoolRepository) CountStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	return repo.count(ctx, repo.getExec(exec), "SELECT COUNT(*) FROM students WHERE course_id = ?", courseID)
}

func (repo schoolRepository) CreateStudent(ctx context.Context, s school.Student, exec ...core.DBExecutor) (school.Student, error) {
	s.ID = uuid.New().String()
	if _, err := repo.execNamed(ctx, repo.getExec(exec),
		"INSERT INTO students ("+studentColumns+") VALUES (:id, :name, :course_id, :support_program, :support_only)",
		repo.boilStudent(s)); err != nil {
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo schoolRepository) QueryStudents(ctx context.Context, filter *school.StudentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.CourseID != "" {
			where = append(where, "course_id = ?")
			args = append(args, filter.CourseID)
		}
		if filter.Search != "" {
			where = append(where, "LOWER(name) LIKE ?")
			args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		}
		if filter.SupportProgram != nil {
			where = append(where, "support_program = ?")
			args = append(args, *filter.SupportProgram)
		}
	}

	query := "SELECT " + studentColumns + " FROM students"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderBy(ordering, studentOrdering, "name ASC")

	var rows []studentRow
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.unboilStudents(rows)
}

func (repo schoolRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Student, error) {
	r, err := getOne[studentRow](ctx, repo.repository, repo.getExec(exec),
		"SELECT "+studentColumns+" FROM students WHERE id = ?", id)
	if err != nil {
		return school.Student{}, trapNoRowsErr(err, school.ErrStudentNotFound, "getting student")
	}
	return school.LoadStudent(r.ID, r.Name, r.CourseID, r.SupportProgram, r.SupportOnly)
}

func (repo schoolRepository) UpdateStudent(ctx context.Context, s school.Student, exec ...core.DBExecutor) (school.Student, error) {
	n, err := repo.execNamed(ctx, repo.getExec(exec),
		`UPDATE students SET name = :name, course_id = :course_id,
		support_program = :support_program, support_only = :support_only WHERE id = :id`,
		repo.boilStudent(s))
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return s, nil
}

func (repo schoolRepository) SetStudentCourse(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) error {
	n, err := repo.exec(ctx, repo.getExec(exec), "UPDATE students SET course_id = ? WHERE id = ?", courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "moving student")
	}
	if n == 0 {
		return school.ErrStudentNotFound
	}
	return nil
}

func (repo schoolRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n == 0 {
		return school.ErrStudentNotFound
	}
	return nil
}
