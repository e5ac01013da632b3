package billing

import (
	"context"
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/core/user"
)

// Period is an inclusive range of days.
type Period struct {
	From civil.Date `json:"from"`
	To   civil.Date `json:"to"`
}

// MonthPeriod covers every day of the given month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{
		From: civil.Date{Year: year, Month: month, Day: 1},
		// day 0 of the next month is the last day of this one
		To: civil.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)),
	}
}

func (p Period) Validate() error {
	if !p.From.IsValid() {
		return core.NewFieldError("from", "from is not a valid date")
	}
	if !p.To.IsValid() {
		return core.NewFieldError("to", "to is not a valid date")
	}
	if p.To.Before(p.From) {
		return core.NewFieldError("to", "to must not be before from")
	}
	return nil
}

func (p Period) Contains(d civil.Date) bool {
	return !d.Before(p.From) && !d.After(p.To)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Consumption is what a staff member had at the cafeteria on one day.
type Consumption struct {
	UserID string     `json:"user_id"`
	Date   civil.Date `json:"date"`
	Meals  int        `json:"meals"`
	Waters int        `json:"waters"`
}

// NewConsumption contains information needed to record a staff member's consumption.
type NewConsumption struct {
	UserID string     `json:"user_id" validate:"required"`
	Date   civil.Date `json:"date" validate:"required"`
	Meals  int        `json:"meals" validate:"gte=0,lte=5"`
	Waters int        `json:"waters" validate:"gte=0,lte=10"`
}

func (nc *NewConsumption) Validate(ctx context.Context, validate *validator.Validate, usrSvc user.Service) error {
	nc.UserID = core.CleanString(nc.UserID)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	if _, err := usrSvc.GetByID(ctx, nc.UserID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "user_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding user")
	}
	return nil
}

// StudentDays is the number of days a student ate in a period.
type StudentDays struct {
	StudentID string
	Days      int
}

type DayCount struct {
	Date  civil.Date `json:"date"`
	Meals int        `json:"meals"`
}

type MealFilter struct {
	Period    Period
	StudentID string
	CourseID  string
}

type StudentInvoice struct {
	Student   school.Student `json:"student"`
	Course    school.Course  `json:"course"`
	Period    Period         `json:"period"`
	Days      int            `json:"days"`
	UnitPrice float64        `json:"unit_price"`
	Total     float64        `json:"total"`
}

type CourseLine struct {
	StudentID string  `json:"student_id"`
	Student   string  `json:"student"`
	Days      int     `json:"days"`
	Total     float64 `json:"total"`
}

type CourseReport struct {
	Course    school.Course `json:"course"`
	Period    Period        `json:"period"`
	UnitPrice float64       `json:"unit_price"`
	Lines     []CourseLine  `json:"lines"`
	Days      int           `json:"days"`
	Total     float64       `json:"total"`
}

type CentreReport struct {
	Period    Period     `json:"period"`
	UnitPrice float64    `json:"unit_price"`
	Meals     int        `json:"meals"`
	Revenue   float64    `json:"revenue"`
	PerDay    []DayCount `json:"per_day"`
}

type TeacherLine struct {
	UserID string  `json:"user_id"`
	Name   string  `json:"name"`
	Meals  int     `json:"meals"`
	Waters int     `json:"waters"`
	Total  float64 `json:"total"`
}

type TeacherReport struct {
	Period     Period        `json:"period"`
	MealPrice  float64       `json:"meal_price"`
	WaterPrice float64       `json:"water_price"`
	Lines      []TeacherLine `json:"lines"`
	Meals      int           `json:"meals"`
	Waters     int           `json:"waters"`
	Total      float64       `json:"total"`
}
