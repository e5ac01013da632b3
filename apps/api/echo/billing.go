package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/billing"
	"github.com/trezcool/comedor/core/user"
)

type billingApi struct {
	svc      billing.Service
	usrSvc   user.Service
	validate *validator.Validate
	conf     *core.Config
}

func registerBillingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc billing.Service,
	usrSvc user.Service,
	validate *validator.Validate,
	conf *core.Config,
) {
	api := billingApi{svc: svc, usrSvc: usrSvc, validate: validate, conf: conf}

	cg := g.Group("/consumptions", jwt, roleMiddleware(user.RoleTeacher))
	cg.GET("", api.queryConsumptions)
	cg.PUT("", api.recordConsumption)

	rg := g.Group("/reports", jwt, adminMiddleware())
	rg.GET("/students/:id", api.studentInvoice)
	rg.GET("/courses/:id", api.courseReport)
	rg.GET("/centre", api.centreReport)
	rg.GET("/teachers", api.teacherReport)
}

// Consumptions

func (api *billingApi) recordConsumption(ctx echo.Context) error {
	var data billing.NewConsumption
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewConsumption")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// teachers record their own consumption only
	if data.UserID == "" {
		data.UserID = claims.Subject
	}
	if !claims.IsAdmin && core.CleanString(data.UserID) != claims.Subject {
		return errHttpForbidden
	}

	if err := data.Validate(ctx.Request().Context(), api.validate, api.usrSvc); err != nil {
		return err
	}
	c, err := api.svc.RecordConsumption(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording consumption")
	}
	return ctx.JSON(http.StatusOK, c)
}

// queryConsumptions lists the period's consumptions; non-admins only see their own.
func (api *billingApi) queryConsumptions(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.conf)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	userID := core.CleanString(ctx.QueryParam("user_id"))
	if !claims.IsAdmin {
		userID = claims.Subject
	}

	cs, err := api.svc.Consumptions(ctx.Request().Context(), period, userID)
	if err != nil {
		return errors.Wrap(err, "querying consumptions")
	}
	if cs == nil {
		cs = []billing.Consumption{}
	}
	return ctx.JSON(http.StatusOK, cs)
}

// Reports

func (api *billingApi) studentInvoice(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.conf)
	if err != nil {
		return err
	}
	price, err := bindMenuPrice(ctx)
	if err != nil {
		return err
	}
	inv, err := api.svc.StudentInvoice(ctx.Request().Context(), ctx.Param("id"), period, price...)
	if err != nil {
		return errors.Wrap(err, "getting student invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *billingApi) courseReport(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.conf)
	if err != nil {
		return err
	}
	price, err := bindMenuPrice(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.CourseReport(ctx.Request().Context(), ctx.Param("id"), period, price...)
	if err != nil {
		return errors.Wrap(err, "getting course report")
	}
	if rep.Lines == nil {
		rep.Lines = []billing.CourseLine{}
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *billingApi) centreReport(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.conf)
	if err != nil {
		return err
	}
	price, err := bindMenuPrice(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.CentreReport(ctx.Request().Context(), period, price...)
	if err != nil {
		return errors.Wrap(err, "getting centre report")
	}
	if rep.PerDay == nil {
		rep.PerDay = []billing.DayCount{}
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *billingApi) teacherReport(ctx echo.Context) error {
	period, err := bindPeriod(ctx, api.conf)
	if err != nil {
		return err
	}
	rep, err := api.svc.TeacherReport(ctx.Request().Context(), period)
	if err != nil {
		return errors.Wrap(err, "getting teacher report")
	}
	if rep.Lines == nil {
		rep.Lines = []billing.TeacherLine{}
	}
	return ctx.JSON(http.StatusOK, rep)
}
