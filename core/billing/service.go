// Package billing turns the attendance register and staff consumption into invoices and reports.
package billing

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/core/user"
)

type (
	Repository interface {
		// UpsertConsumption replaces the consumption of the same (user, date).
		UpsertConsumption(ctx context.Context, c Consumption, exec ...core.DBExecutor) error
		QueryConsumptions(ctx context.Context, period Period, userID string, exec ...core.DBExecutor) ([]Consumption, error)
		// CountMealDays counts, per student, the days recorded as eating. Students with no such day are omitted.
		CountMealDays(ctx context.Context, filter MealFilter, exec ...core.DBExecutor) ([]StudentDays, error)
		MealsPerDay(ctx context.Context, period Period, exec ...core.DBExecutor) ([]DayCount, error)
	}

	Service interface {
		RecordConsumption(ctx context.Context, nc NewConsumption) (Consumption, error)
		Consumptions(ctx context.Context, period Period, userID string) ([]Consumption, error)
		// The student reports take an optional menu price overriding the configured one.
		StudentInvoice(ctx context.Context, studentID string, period Period, menuPrice ...float64) (StudentInvoice, error)
		CourseReport(ctx context.Context, courseID string, period Period, menuPrice ...float64) (CourseReport, error)
		CentreReport(ctx context.Context, period Period, menuPrice ...float64) (CentreReport, error)
		TeacherReport(ctx context.Context, period Period) (TeacherReport, error)
	}

	service struct {
		repo   Repository
		school school.Service
		users  user.Service
		prices core.PriceConfig
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, schoolSvc school.Service, usrSvc user.Service, conf *core.Config) Service {
	return &service{repo: repo, school: schoolSvc, users: usrSvc, prices: conf.Prices}
}

func (svc *service) RecordConsumption(ctx context.Context, nc NewConsumption) (Consumption, error) {
	c := Consumption{UserID: nc.UserID, Date: nc.Date, Meals: nc.Meals, Waters: nc.Waters}
	if err := svc.repo.UpsertConsumption(ctx, c); err != nil {
		return Consumption{}, err
	}
	return c, nil
}

func (svc *service) Consumptions(ctx context.Context, period Period, userID string) ([]Consumption, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.QueryConsumptions(ctx, period, userID)
}

func (svc *service) menuPrice(override []float64) float64 {
	if len(override) > 0 && override[0] > 0 {
		return override[0]
	}
	return svc.prices.StudentMenu
}

func (svc *service) StudentInvoice(ctx context.Context, studentID string, period Period, menuPrice ...float64) (StudentInvoice, error) {
	if err := period.Validate(); err != nil {
		return StudentInvoice{}, err
	}
	s, err := svc.school.GetStudent(ctx, studentID)
	if err != nil {
		return StudentInvoice{}, err
	}
	c, err := svc.school.GetCourse(ctx, s.CourseID)
	if err != nil {
		return StudentInvoice{}, err
	}
	counts, err := svc.repo.CountMealDays(ctx, MealFilter{Period: period, StudentID: studentID})
	if err != nil {
		return StudentInvoice{}, errors.Wrap(err, "counting meal days")
	}

	inv := StudentInvoice{Student: s, Course: c, Period: period, UnitPrice: svc.menuPrice(menuPrice)}
	for _, sd := range counts {
		inv.Days += sd.Days
	}
	inv.Total = roundCents(float64(inv.Days) * inv.UnitPrice)
	return inv, nil
}

// CourseReport bills the students currently in a course. Students who never ate are left out.
func (svc *service) CourseReport(ctx context.Context, courseID string, period Period, menuPrice ...float64) (CourseReport, error) {
	if err := period.Validate(); err != nil {
		return CourseReport{}, err
	}
	c, err := svc.school.GetCourse(ctx, courseID)
	if err != nil {
		return CourseReport{}, err
	}
	students, err := svc.school.Students(ctx, &school.StudentFilter{CourseID: courseID}, nil)
	if err != nil {
		return CourseReport{}, errors.Wrap(err, "querying students")
	}
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.Name
	}
	counts, err := svc.repo.CountMealDays(ctx, MealFilter{Period: period, CourseID: courseID})
	if err != nil {
		return CourseReport{}, errors.Wrap(err, "counting meal days")
	}

	rep := CourseReport{Course: c, Period: period, UnitPrice: svc.menuPrice(menuPrice), Lines: []CourseLine{}}
	for _, sd := range counts {
		line := CourseLine{
			StudentID: sd.StudentID,
			Student:   names[sd.StudentID],
			Days:      sd.Days,
			Total:     roundCents(float64(sd.Days) * rep.UnitPrice),
		}
		rep.Lines = append(rep.Lines, line)
		rep.Days += sd.Days
	}
	sort.SliceStable(rep.Lines, func(i, j int) bool { return rep.Lines[i].Student < rep.Lines[j].Student })
	rep.Total = roundCents(float64(rep.Days) * rep.UnitPrice)
	return rep, nil
}

func (svc *service) CentreReport(ctx context.Context, period Period, menuPrice ...float64) (CentreReport, error) {
	if err := period.Validate(); err != nil {
		return CentreReport{}, err
	}
	perDay, err := svc.repo.MealsPerDay(ctx, period)
	if err != nil {
		return CentreReport{}, errors.Wrap(err, "counting meals per day")
	}

	rep := CentreReport{Period: period, UnitPrice: svc.menuPrice(menuPrice), PerDay: perDay}
	if rep.PerDay == nil {
		rep.PerDay = []DayCount{}
	}
	for _, d := range perDay {
		rep.Meals += d.Meals
	}
	rep.Revenue = roundCents(float64(rep.Meals) * rep.UnitPrice)
	return rep, nil
}

// TeacherReport sums each staff member's meals and waters over the period.
func (svc *service) TeacherReport(ctx context.Context, period Period) (TeacherReport, error) {
	if err := period.Validate(); err != nil {
		return TeacherReport{}, err
	}
	cons, err := svc.repo.QueryConsumptions(ctx, period, "")
	if err != nil {
		return TeacherReport{}, errors.Wrap(err, "querying consumptions")
	}
	users, err := svc.users.Query(ctx, nil, nil)
	if err != nil {
		return TeacherReport{}, errors.Wrap(err, "querying users")
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	rep := TeacherReport{
		Period:     period,
		MealPrice:  svc.prices.TeacherMeal,
		WaterPrice: svc.prices.Water,
		Lines:      []TeacherLine{},
	}
	index := make(map[string]int)
	for _, c := range cons {
		i, ok := index[c.UserID]
		if !ok {
			i = len(rep.Lines)
			index[c.UserID] = i
			rep.Lines = append(rep.Lines, TeacherLine{UserID: c.UserID, Name: names[c.UserID]})
		}
		rep.Lines[i].Meals += c.Meals
		rep.Lines[i].Waters += c.Waters
	}
	for i := range rep.Lines {
		l := &rep.Lines[i]
		l.Total = roundCents(float64(l.Meals)*rep.MealPrice + float64(l.Waters)*rep.WaterPrice)
		rep.Meals += l.Meals
		rep.Waters += l.Waters
		rep.Total += l.Total
	}
	rep.Total = roundCents(rep.Total)
	sort.SliceStable(rep.Lines, func(i, j int) bool { return rep.Lines[i].Name < rep.Lines[j].Name })
	return rep, nil
}
