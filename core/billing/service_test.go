package billing_test

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/attendance"
	"github.com/trezcool/comedor/core/billing"
	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/core/user"
	"github.com/trezcool/comedor/services/email"
	"github.com/trezcool/comedor/storage/database/sqlx"
	"github.com/trezcool/comedor/tests"
)

type fixture struct {
	schools  school.Repository
	users    user.Repository
	register attendance.Service
	usrSvc   user.Service
	svc      billing.Service
}

func setup(t *testing.T) *fixture {
	db, conf := testutil.PrepareDB(t)
	f := &fixture{
		schools: sqlxrepos.NewSchoolRepository(db),
		users:   sqlxrepos.NewUserRepository(db),
	}
	schoolSvc := school.NewService(f.schools)
	f.usrSvc = user.NewService(f.users)
	f.register = attendance.NewService(db, sqlxrepos.NewAttendanceRepository(db), schoolSvc, emailsvc.NewConsoleServiceMock(conf), conf)
	f.svc = billing.NewService(sqlxrepos.NewBillingRepository(db), schoolSvc, f.usrSvc, conf)
	return f
}

func date(day int) civil.Date {
	return civil.Date{Year: 2024, Month: 3, Day: day}
}

func (f *fixture) mark(t *testing.T, courseID string, d civil.Date, marks ...attendance.Mark) {
	_, err := f.register.Submit(context.Background(), attendance.RollCall{CourseID: courseID, Date: d, Marks: marks})
	require.NoError(t, err)
}

func TestStudentReports(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p1 := testutil.CreateCourse(t, f.schools, "1º PRIMARIA", "", 4)
	p2 := testutil.CreateCourse(t, f.schools, "2º PRIMARIA", "", 5)
	ana := testutil.CreateStudent(t, f.schools, "Ana", p1.ID, false, false)
	leo := testutil.CreateStudent(t, f.schools, "Leo", p1.ID, false, false)
	eva := testutil.CreateStudent(t, f.schools, "Eva", p1.ID, false, false)
	bea := testutil.CreateStudent(t, f.schools, "Bea", p2.ID, false, false)

	f.mark(t, p1.ID, date(4),
		attendance.Mark{StudentID: ana.ID, Attends: true},
		attendance.Mark{StudentID: leo.ID, Attends: true},
		attendance.Mark{StudentID: eva.ID, Attends: false})
	f.mark(t, p1.ID, date(5),
		attendance.Mark{StudentID: ana.ID, Attends: true},
		attendance.Mark{StudentID: leo.ID, Attends: false})
	f.mark(t, p2.ID, date(5), attendance.Mark{StudentID: bea.ID, Attends: true})
	// outside the month
	f.mark(t, p1.ID, civil.Date{Year: 2024, Month: 4, Day: 1}, attendance.Mark{StudentID: ana.ID, Attends: true})

	march := billing.MonthPeriod(2024, 3)

	inv, err := f.svc.StudentInvoice(ctx, ana.ID, march)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.Days)
	assert.Equal(t, 4.50, inv.UnitPrice)
	assert.Equal(t, 9.0, inv.Total)
	assert.Equal(t, p1, inv.Course)

	inv, err = f.svc.StudentInvoice(ctx, eva.ID, march)
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Days)
	assert.Equal(t, 0.0, inv.Total)

	_, err = f.svc.StudentInvoice(ctx, "missing", march)
	assert.Equal(t, school.ErrStudentNotFound, err)

	rep, err := f.svc.CourseReport(ctx, p1.ID, march)
	require.NoError(t, err)
	assert.Equal(t, []billing.CourseLine{
		{StudentID: ana.ID, Student: "Ana", Days: 2, Total: 9},
		{StudentID: leo.ID, Student: "Leo", Days: 1, Total: 4.5},
	}, rep.Lines)
	assert.Equal(t, 3, rep.Days)
	assert.Equal(t, 13.5, rep.Total)

	centre, err := f.svc.CentreReport(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, 4, centre.Meals)
	assert.Equal(t, 18.0, centre.Revenue)
	assert.Equal(t, []billing.DayCount{{Date: date(4), Meals: 2}, {Date: date(5), Meals: 2}}, centre.PerDay)

	_, err = f.svc.CentreReport(ctx, billing.Period{From: date(10), To: date(1)})
	assert.Error(t, err)

	// a menu price given for the report replaces the configured one
	inv, err = f.svc.StudentInvoice(ctx, ana.ID, march, 5.25)
	require.NoError(t, err)
	assert.Equal(t, 5.25, inv.UnitPrice)
	assert.Equal(t, 10.5, inv.Total)

	rep, err = f.svc.CourseReport(ctx, p1.ID, march, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rep.Lines[1].Total)
	assert.Equal(t, 15.0, rep.Total)

	centre, err = f.svc.CentreReport(ctx, march, 0)
	require.NoError(t, err)
	assert.Equal(t, 4.50, centre.UnitPrice)
	assert.Equal(t, 18.0, centre.Revenue)
}

func TestConsumptions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	zoe := testutil.CreateUser(t, f.users, "Zoe", "zoe_t", "zoe@test.local", "", []string{user.RoleTeacher}, true)
	alba := testutil.CreateUser(t, f.users, "Alba", "alba_t", "alba@test.local", "", []string{user.RoleTeacher}, true)

	nc := billing.NewConsumption{UserID: "missing", Date: date(4), Meals: 1}
	err := nc.Validate(ctx, validate, f.usrSvc)
	require.Error(t, err)

	nc = billing.NewConsumption{UserID: zoe.ID, Date: date(4), Meals: -1}
	assert.Error(t, nc.Validate(ctx, validate, f.usrSvc))

	record := func(userID string, d civil.Date, meals, waters int) {
		nc := billing.NewConsumption{UserID: userID, Date: d, Meals: meals, Waters: waters}
		require.NoError(t, nc.Validate(ctx, validate, f.usrSvc))
		_, err := f.svc.RecordConsumption(ctx, nc)
		require.NoError(t, err)
	}
	record(zoe.ID, date(4), 1, 1)
	record(zoe.ID, date(4), 1, 2) // replaces
	record(zoe.ID, date(5), 1, 0)
	record(alba.ID, date(5), 1, 1)

	cons, err := f.svc.Consumptions(ctx, billing.MonthPeriod(2024, 3), zoe.ID)
	require.NoError(t, err)
	assert.Equal(t, []billing.Consumption{
		{UserID: zoe.ID, Date: date(4), Meals: 1, Waters: 2},
		{UserID: zoe.ID, Date: date(5), Meals: 1, Waters: 0},
	}, cons)

	rep, err := f.svc.TeacherReport(ctx, billing.MonthPeriod(2024, 3))
	require.NoError(t, err)
	assert.Equal(t, []billing.TeacherLine{
		{UserID: alba.ID, Name: "Alba", Meals: 1, Waters: 1, Total: 5.5},
		{UserID: zoe.ID, Name: "Zoe", Meals: 2, Waters: 2, Total: 11},
	}, rep.Lines)
	assert.Equal(t, 3, rep.Meals)
	assert.Equal(t, 3, rep.Waters)
	assert.Equal(t, 16.5, rep.Total)
}
