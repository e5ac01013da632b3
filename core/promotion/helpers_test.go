package promotion

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/trezcool/comedor/core/school"
)

func studentWithID(id string) school.Student {
	return school.Student{ID: id, Name: id, CourseID: "c"}
}

func civilDate(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}
