package promotion

import (
	"strings"

	"github.com/trezcool/comedor/core"
)

// nextCourse maps a course name to the course its students move up to at the end of the year.
// Courses are matched by name; the section letter is kept when promoting.
var nextCourse = map[string]string{
	"INF 3 AÑOS":  "INF 4 AÑOS",
	"INF 4 AÑOS":  "INF 5 AÑOS",
	"INF 5 AÑOS":  "1º PRIMARIA",
	"1º PRIMARIA": "2º PRIMARIA",
	"2º PRIMARIA": "3º PRIMARIA",
	"3º PRIMARIA": "4º PRIMARIA",
	"4º PRIMARIA": "5º PRIMARIA",
	"5º PRIMARIA": "6º PRIMARIA",
}

// finalCourses leave the school instead of moving up.
var finalCourses = map[string]bool{
	"6º PRIMARIA": true,
}

func normalizeCourseName(name string) string {
	return strings.ToUpper(core.CleanString(name))
}

// Next returns the name of the course following courseName, if any.
func Next(courseName string) (string, bool) {
	next, ok := nextCourse[normalizeCourseName(courseName)]
	return next, ok
}

// IsFinal reports whether courseName is the last course of the school.
func IsFinal(courseName string) bool {
	return finalCourses[normalizeCourseName(courseName)]
}
