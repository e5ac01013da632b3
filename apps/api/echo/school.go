package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/core/user"
)

var (
	errCourseNotFoundInCtx  = errors.New("course object not found in echo.Context")
	errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")
)

type schoolApi struct {
	svc      school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc school.Service, validate *validator.Validate) {
	api := schoolApi{svc: svc, validate: validate}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.queryCourses)
	cg.POST("", api.createCourse, adminMiddleware())
	cdg := cg.Group("/:id", courseMiddleware(svc))
	cdg.GET("", api.retrieveCourse)
	cdg.PUT("", api.updateCourse, adminMiddleware())
	cdg.DELETE("", api.destroyCourse, adminMiddleware())

	sg := g.Group("/students", jwt)
	sg.GET("", api.queryStudents)
	sg.POST("", api.createStudent, adminMiddleware())
	sdg := sg.Group("/:id", studentMiddleware(svc))
	sdg.GET("", api.retrieveStudent)
	sdg.PUT("", api.updateStudent, adminMiddleware())
	sdg.DELETE("", api.destroyStudent, adminMiddleware())
	sdg.PUT("/support", api.setSupportProgram, roleMiddleware(user.RoleSupport))
}

// Courses

func (api *schoolApi) queryCourses(ctx echo.Context) error {
	courses, err := api.svc.Courses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []school.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *schoolApi) createCourse(ctx echo.Context) error {
	var data school.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *schoolApi) retrieveCourse(ctx echo.Context) error {
	course, ok := ctx.Get("object").(school.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *schoolApi) updateCourse(ctx echo.Context) error {
	course, ok := ctx.Get("object").(school.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	var data school.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	course, err := api.svc.UpdateCourse(ctx.Request().Context(), course, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *schoolApi) destroyCourse(ctx echo.Context) error {
	course, ok := ctx.Get("object").(school.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.DeleteCourse(ctx.Request().Context(), course.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	filter := new(school.StudentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []school.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Students(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	student, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, student)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	student, ok := ctx.Get("object").(school.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	student, ok := ctx.Get("object").(school.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.svc); err != nil {
		return err
	}

	student, err := api.svc.UpdateStudent(ctx.Request().Context(), student, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, student)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	student, ok := ctx.Get("object").(school.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.DeleteStudent(ctx.Request().Context(), student.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) setSupportProgram(ctx echo.Context) error {
	student, ok := ctx.Get("object").(school.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data SupportProgramRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SupportProgramRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	student, err := api.svc.SetSupportProgram(ctx.Request().Context(), student.ID, *data.Enrolled)
	if err != nil {
		return errors.Wrap(err, "setting support program")
	}
	return ctx.JSON(http.StatusOK, student)
}

func courseMiddleware(svc school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			course, err := svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == school.ErrCourseNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}
			ctx.Set("object", course)
			return next(ctx)
		}
	}
}

func studentMiddleware(svc school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			student, err := svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == school.ErrStudentNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			ctx.Set("object", student)
			return next(ctx)
		}
	}
}

type SupportProgramRequest struct {
	Enrolled *bool `json:"enrolled" validate:"required"`
}
