package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/attendance"
	"github.com/trezcool/comedor/core/user"
)

type attendanceApi struct {
	svc      attendance.Service
	validate *validator.Validate
	conf     *core.Config
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc attendance.Service,
	validate *validator.Validate,
	conf *core.Config,
) {
	api := attendanceApi{svc: svc, validate: validate, conf: conf}

	ag := g.Group("/attendance", jwt)
	ag.GET("/roll-call", api.rollCall, roleMiddleware(user.RoleTeacher))
	ag.PUT("/roll-call", api.submit, roleMiddleware(user.RoleTeacher))
	ag.GET("/summary", api.summary, roleMiddleware(user.RoleKitchen))
	ag.POST("/summary/mail", api.mailSummary, adminMiddleware())
	ag.GET("/support", api.supportPresence, roleMiddleware(user.RoleSupport))
}

// rollCall answers `?course_id=...&date=YYYY-MM-DD`; the date defaults to today.
func (api *attendanceApi) rollCall(ctx echo.Context) error {
	courseID := core.CleanString(ctx.QueryParam("course_id"))
	if courseID == "" {
		return core.NewFieldError("course_id", "this field is required")
	}
	date, err := bindDate(ctx, "date", api.conf)
	if err != nil {
		return err
	}

	sheet, err := api.svc.RollCall(ctx.Request().Context(), courseID, date)
	if err != nil {
		return errors.Wrap(err, "getting roll call")
	}
	if sheet.Lines == nil {
		sheet.Lines = []attendance.SheetLine{}
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *attendanceApi) submit(ctx echo.Context) error {
	var data attendance.RollCall
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RollCall")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	recs, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting roll call")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	date, err := bindDate(ctx, "date", api.conf)
	if err != nil {
		return err
	}
	sum, err := api.svc.DailySummary(ctx.Request().Context(), date)
	if err != nil {
		return errors.Wrap(err, "getting daily summary")
	}
	return ctx.JSON(http.StatusOK, cleanSummary(sum))
}

func (api *attendanceApi) mailSummary(ctx echo.Context) error {
	date, err := bindDate(ctx, "date", api.conf)
	if err != nil {
		return err
	}
	sum, err := api.svc.MailDailySummary(ctx.Request().Context(), date)
	if err != nil {
		return errors.Wrap(err, "mailing daily summary")
	}
	return ctx.JSON(http.StatusAccepted, cleanSummary(sum))
}

func (api *attendanceApi) supportPresence(ctx echo.Context) error {
	date, err := bindDate(ctx, "date", api.conf)
	if err != nil {
		return err
	}
	courses, err := api.svc.SupportPresence(ctx.Request().Context(), date)
	if err != nil {
		return errors.Wrap(err, "getting support presence")
	}
	if courses == nil {
		courses = []attendance.SupportCourse{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func cleanSummary(sum attendance.Summary) attendance.Summary {
	if sum.Courses == nil {
		sum.Courses = []attendance.CourseCount{}
	}
	if sum.Observations == nil {
		sum.Observations = []attendance.Observation{}
	}
	return sum
}
