package echoapi

import (
	"context"
	"net/http"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/comedor/core/attendance"
	"github.com/trezcool/comedor/core/billing"
	"github.com/trezcool/comedor/core/user"
	"github.com/trezcool/comedor/storage/database/sqlx"
	"github.com/trezcool/comedor/tests"
)

func Test_billingApi(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "", "", []string{user.RoleAdmin}, true)
	lola := testutil.CreateUser(t, app.usrRepo, "Lola", "lola", "", "", []string{user.RoleTeacher}, true)
	pepe := testutil.CreateUser(t, app.usrRepo, "Pepe", "pepe", "", "", []string{user.RoleTeacher}, true)
	kitchen := testutil.CreateUser(t, app.usrRepo, "Cocina", "cocina", "", "", []string{user.RoleKitchen}, true)
	lolaToken := app.token(t, lola)
	adminToken := app.token(t, admin)

	p1 := testutil.CreateCourse(t, app.schools, "1º PRIMARIA", "", 4)
	ana := testutil.CreateStudent(t, app.schools, "Ana", p1.ID, false, false)
	bea := testutil.CreateStudent(t, app.schools, "Bea", p1.ID, false, false)

	// Ana eats 3 days in March, Bea 1; one day outside the month
	attRepo := sqlxrepos.NewAttendanceRepository(app.db)
	var recs []attendance.Record
	for _, d := range []int{4, 5, 6} {
		recs = append(recs, attendance.Record{StudentID: ana.ID, Date: civil.Date{Year: 2024, Month: 3, Day: d}, Attends: true})
	}
	recs = append(recs,
		attendance.Record{StudentID: bea.ID, Date: civil.Date{Year: 2024, Month: 3, Day: 4}, Attends: true},
		attendance.Record{StudentID: bea.ID, Date: civil.Date{Year: 2024, Month: 3, Day: 5}, Attends: false},
		attendance.Record{StudentID: ana.ID, Date: civil.Date{Year: 2024, Month: 4, Day: 1}, Attends: true},
	)
	require.NoError(t, attRepo.UpsertRecords(context.Background(), recs))

	consumption := func(userID string, day, meals, waters int) []byte {
		return marchallObj(t, billing.NewConsumption{
			UserID: userID, Date: civil.Date{Year: 2024, Month: 3, Day: day}, Meals: meals, Waters: waters,
		})
	}

	app.run(t, []httpTest{
		{name: "teacher role required", method: http.MethodPut, path: "/v1/consumptions", token: app.token(t, kitchen), body: consumption(lola.ID, 4, 1, 0), wantCode: http.StatusForbidden},
		{name: "only for themselves", method: http.MethodPut, path: "/v1/consumptions", token: lolaToken, body: consumption(pepe.ID, 4, 1, 0), wantCode: http.StatusForbidden},
		{
			name: "too many meals", method: http.MethodPut, path: "/v1/consumptions", token: lolaToken, body: consumption("", 4, 6, 0),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"meals": "meals must be 5 or less"}),
		},
		{name: "own", method: http.MethodPut, path: "/v1/consumptions", token: lolaToken, body: consumption("", 4, 1, 2)},
		{name: "own again replaces", method: http.MethodPut, path: "/v1/consumptions", token: lolaToken, body: consumption(lola.ID, 4, 1, 1)},
		{name: "admin for anyone", method: http.MethodPut, path: "/v1/consumptions", token: adminToken, body: consumption(pepe.ID, 5, 2, 0)},
		{name: "unknown user", method: http.MethodPut, path: "/v1/consumptions", token: adminToken, body: consumption("nope", 5, 2, 0), wantCode: http.StatusBadRequest},
		{name: "reports are admin only", path: "/v1/reports/centre?year=2024&month=3", token: lolaToken, wantCode: http.StatusForbidden},
		{
			name: "bad month", path: "/v1/reports/centre?year=2024&month=13", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"month": "month must be between 1 and 12"}),
		},
		{
			name: "reversed period", path: "/v1/reports/centre?from=2024-03-10&to=2024-03-01", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"to": "to must not be before from"}),
		},
		{
			name: "bad price", path: "/v1/reports/centre?year=2024&month=3&price=gratis", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"price": "price must be a positive amount"}),
		},
		{name: "unknown student", path: "/v1/reports/students/nope", token: adminToken, wantCode: http.StatusNotFound},
		{name: "unknown course", path: "/v1/reports/courses/nope", token: adminToken, wantCode: http.StatusNotFound},
	})

	t.Run("teachers see their own consumptions", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/consumptions?year=2024&month=3&user_id=" + pepe.ID, token: lolaToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var cs []billing.Consumption
		decode(t, rec, &cs)
		require.Len(t, cs, 1)
		assert.Equal(t, billing.Consumption{UserID: lola.ID, Date: civil.Date{Year: 2024, Month: 3, Day: 4}, Meals: 1, Waters: 1}, cs[0])
	})

	t.Run("student invoice", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/reports/students/" + ana.ID + "?year=2024&month=3", token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var inv billing.StudentInvoice
		decode(t, rec, &inv)
		assert.Equal(t, 3, inv.Days)
		assert.Equal(t, 13.5, inv.Total)
		assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 31}, inv.Period.To)
	})

	t.Run("course report", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/reports/courses/" + p1.ID + "?from=2024-03-01&to=2024-03-31", token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep billing.CourseReport
		decode(t, rec, &rep)
		assert.Equal(t, []billing.CourseLine{
			{StudentID: ana.ID, Student: "Ana", Days: 3, Total: 13.5},
			{StudentID: bea.ID, Student: "Bea", Days: 1, Total: 4.5},
		}, rep.Lines)
		assert.Equal(t, 4, rep.Days)
		assert.Equal(t, 18.0, rep.Total)
	})

	t.Run("centre report", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/reports/centre?year=2024&month=3", token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep billing.CentreReport
		decode(t, rec, &rep)
		assert.Equal(t, 4, rep.Meals)
		assert.Equal(t, 18.0, rep.Revenue)
		assert.Len(t, rep.PerDay, 3)
	})

	t.Run("centre report with menu price", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/reports/centre?year=2024&month=3&price=4,75", token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep billing.CentreReport
		decode(t, rec, &rep)
		assert.Equal(t, 4.75, rep.UnitPrice)
		assert.Equal(t, 19.0, rep.Revenue)
	})

	t.Run("teacher report", func(t *testing.T) {
		rec := app.do(httpTest{path: "/v1/reports/teachers?year=2024&month=3", token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep billing.TeacherReport
		decode(t, rec, &rep)
		assert.Equal(t, []billing.TeacherLine{
			{UserID: lola.ID, Name: "Lola", Meals: 1, Waters: 1, Total: 5.5},
			{UserID: pepe.ID, Name: "Pepe", Meals: 2, Waters: 0, Total: 10},
		}, rep.Lines)
		assert.Equal(t, 15.5, rep.Total)
	})
}
