package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/lesson"
	"github.com/lanes-app/lanes/core/user"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) registerLessonAPI(og *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)

	lg := og.Group("/lessons")
	lg.GET("", s.queryLessons)
	lg.POST("", s.createLesson, admin)
	lg.GET("/:id", s.retrieveLesson)
	lg.PUT("/:id", s.updateLesson, admin)
	lg.DELETE("/:id", s.destroyLesson, admin)
	lg.GET("/:id/roster.xlsx", s.lessonRoster, rolesMiddleware(user.RoleAdmin, user.RoleInstructor))
}

func (s *Server) queryLessons(ctx echo.Context) error {
	filter := lesson.NewQueryFilter(orgOf(ctx).ID)
	filter.ClassLevelID = ctx.QueryParam("class_level_id")
	filter.InstructorID = ctx.QueryParam("instructor_id")
	filter.DayOfWeek = queryInt(ctx, "day_of_week", -1)
	ordering := new(Ordering)
	ordering.Bind(ctx, lessonOrderings)

	lessons, err := s.deps.LessonSvc.Query(ctx.Request().Context(), principalOf(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (s *Server) createLesson(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := bind(ctx, &data, "NewLesson"); err != nil {
		return err
	}
	l, err := s.deps.LessonSvc.Create(ctx.Request().Context(), orgOf(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (s *Server) retrieveLesson(ctx echo.Context) error {
	l, err := s.deps.LessonSvc.Get(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (s *Server) updateLesson(ctx echo.Context) error {
	var data lesson.UpdateLesson
	if err := bind(ctx, &data, "UpdateLesson"); err != nil {
		return err
	}
	l, err := s.deps.LessonSvc.Update(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (s *Server) destroyLesson(ctx echo.Context) error {
	if err := s.deps.LessonSvc.Delete(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// lessonRoster sends the lesson's roster as a spreadsheet.
func (s *Server) lessonRoster(ctx echo.Context) error {
	roster, err := s.deps.ReportSvc.Roster(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	content, err := roster.WriteXLSX()
	if err != nil {
		return errors.Wrap(err, "writing roster")
	}

	filename := fmt.Sprintf("roster-%s.xlsx", slug(roster.LessonName))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxMIME, content)
}

// slug keeps the ascii letters and digits of s, joined by "-".
func slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(fields) == 0 {
		return "lesson"
	}
	return strings.Join(fields, "-")
}
