package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/escolabr/escola/core/school"
)

type schoolApi struct {
	reg *school.Registry
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, reg *school.Registry) {
	api := schoolApi{reg: reg}

	ag := g.Group("", jwt)

	sg := ag.Group("/students")
	sg.GET("", api.queryStudents)
	sg.POST("", api.createStudent, adminMiddleware())
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent, adminMiddleware())
	sg.DELETE("/:id", api.destroyStudent, adminMiddleware())

	tg := ag.Group("/teachers")
	tg.GET("", api.queryTeachers)
	tg.POST("", api.createTeacher, adminMiddleware())
	tg.GET("/:id", api.retrieveTeacher)
	tg.PUT("/:id", api.updateTeacher, adminMiddleware())
	tg.DELETE("/:id", api.destroyTeacher, adminMiddleware())

	ug := ag.Group("/subjects")
	ug.GET("", api.querySubjects)
	ug.POST("", api.createSubject, adminMiddleware())
	ug.GET("/:id", api.retrieveSubject)
	ug.PUT("/:id", api.updateSubject, adminMiddleware())
	ug.DELETE("/:id", api.destroySubject, adminMiddleware())

	cg := ag.Group("/classes")
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass, adminMiddleware())
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass, adminMiddleware())
	cg.DELETE("/:id", api.destroyClass, adminMiddleware())

	// attendance and grades are upserts keyed on their natural key; PUT /:id
	// corrects an existing record in place
	atg := ag.Group("/attendances")
	atg.GET("", api.queryAttendances)
	atg.PUT("", api.saveAttendance, staffMiddleware())
	atg.PUT("/:id", api.updateAttendance, staffMiddleware())
	atg.DELETE("/:id", api.destroyAttendance, staffMiddleware())

	grg := ag.Group("/grades")
	grg.GET("", api.queryGrades)
	grg.PUT("", api.saveGrade, staffMiddleware())
	grg.PUT("/:id", api.updateGrade, staffMiddleware())
	grg.DELETE("/:id", api.destroyGrade, staffMiddleware())
}

// Students

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.reg.Students())
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.reg.AddStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	std, err := api.reg.GetStudent(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	std, err := api.reg.UpdateStudent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	if err := api.reg.DeleteStudent(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Teachers

func (api *schoolApi) queryTeachers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.reg.Teachers())
}

func (api *schoolApi) createTeacher(ctx echo.Context) error {
	var data school.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	tch, tempPwd, err := api.reg.AddTeacher(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, NewTeacherResponse{Teacher: tch, TempPassword: tempPwd})
}

func (api *schoolApi) retrieveTeacher(ctx echo.Context) error {
	tch, err := api.reg.GetTeacher(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *schoolApi) updateTeacher(ctx echo.Context) error {
	var data school.UpdateTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	tch, err := api.reg.UpdateTeacher(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *schoolApi) destroyTeacher(ctx echo.Context) error {
	if err := api.reg.DeleteTeacher(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *schoolApi) querySubjects(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.reg.Subjects())
}

func (api *schoolApi) createSubject(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.reg.AddSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *schoolApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.reg.GetSubject(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *schoolApi) updateSubject(ctx echo.Context) error {
	var data school.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sub, err := api.reg.UpdateSubject(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *schoolApi) destroySubject(ctx echo.Context) error {
	if err := api.reg.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Classes

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.reg.Classes())
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.reg.AddClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.reg.GetClass(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	var data school.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.reg.UpdateClass(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) destroyClass(ctx echo.Context) error {
	if err := api.reg.DeleteClass(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Attendances

func (api *schoolApi) queryAttendances(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.reg.Attendances())
}

func (api *schoolApi) saveAttendance(ctx echo.Context) error {
	var data school.AttendanceEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceEntry")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	att, err := api.reg.SaveAttendance(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *schoolApi) updateAttendance(ctx echo.Context) error {
	var data school.UpdateAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendance")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	att, err := api.reg.UpdateAttendance(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *schoolApi) destroyAttendance(ctx echo.Context) error {
	if err := api.reg.DeleteAttendance(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Grades

func (api *schoolApi) queryGrades(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.reg.Grades())
}

func (api *schoolApi) saveGrade(ctx echo.Context) error {
	var data school.GradeEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeEntry")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	grd, err := api.reg.SaveGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *schoolApi) updateGrade(ctx echo.Context) error {
	var data school.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	grd, err := api.reg.UpdateGrade(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *schoolApi) destroyGrade(ctx echo.Context) error {
	if err := api.reg.DeleteGrade(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// NewTeacherResponse carries the one-time generated password along with the
// created teacher; it is shown once and never stored.
type NewTeacherResponse struct {
	school.Teacher
	TempPassword string `json:"temp_password"`
}
