package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/enrollment"
	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerEnrollmentAPI(og *echo.Group) {
	adminOrParent := rolesMiddleware(user.RoleAdmin, user.RoleParent)
	adminOrInstructor := rolesMiddleware(user.RoleAdmin, user.RoleInstructor)

	eg := og.Group("/enrollments")
	eg.GET("", s.queryEnrollments)
	eg.POST("", s.createEnrollment, adminOrParent)
	eg.GET("/:id", s.retrieveEnrollment)
	eg.PUT("/:id", s.updateEnrollment, rolesMiddleware(user.RoleAdmin))
	eg.DELETE("/:id", s.destroyEnrollment, adminOrParent)

	eg.POST("/:id/next", s.nextEnrollment, adminOrInstructor)
	eg.GET("/:id/progress", s.enrollmentProgress)
	eg.PUT("/:id/progress/:skillID", s.updateProgress, adminOrInstructor)
	eg.PUT("/:id/readiness", s.updateReadiness, adminOrInstructor)
}

func (s *Server) queryEnrollments(ctx echo.Context) error {
	filter := enrollment.QueryFilter{
		OrganizationID: orgOf(ctx).ID,
		LessonID:       ctx.QueryParam("lesson_id"),
		ChildID:        ctx.QueryParam("child_id"),
	}
	enrollments, err := s.deps.EnrollmentSvc.Query(ctx.Request().Context(), principalOf(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (s *Server) createEnrollment(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := bind(ctx, &data, "NewEnrollment"); err != nil {
		return err
	}
	e, err := s.deps.EnrollmentSvc.Create(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (s *Server) retrieveEnrollment(ctx echo.Context) error {
	e, err := s.deps.EnrollmentSvc.Get(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (s *Server) updateEnrollment(ctx echo.Context) error {
	var data enrollment.UpdateEnrollment
	if err := bind(ctx, &data, "UpdateEnrollment"); err != nil {
		return err
	}
	e, err := s.deps.EnrollmentSvc.Update(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (s *Server) destroyEnrollment(ctx echo.Context) error {
	err := s.deps.EnrollmentSvc.Delete(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// nextEnrollment enrolls the child into its next lesson, carrying or seeding the progress.
func (s *Server) nextEnrollment(ctx echo.Context) error {
	var data enrollment.NextEnrollment
	if err := bind(ctx, &data, "NextEnrollment"); err != nil {
		return err
	}
	e, err := s.deps.EnrollmentSvc.Next(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (s *Server) enrollmentProgress(ctx echo.Context) error {
	progress, err := s.deps.EnrollmentSvc.Progress(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (s *Server) updateProgress(ctx echo.Context) error {
	var data enrollment.UpdateProgress
	if err := bind(ctx, &data, "UpdateProgress"); err != nil {
		return err
	}
	sp, err := s.deps.EnrollmentSvc.UpdateProgress(
		ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"), ctx.Param("skillID"), data,
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sp)
}

func (s *Server) updateReadiness(ctx echo.Context) error {
	var data enrollment.UpdateReadiness
	if err := bind(ctx, &data, "UpdateReadiness"); err != nil {
		return err
	}
	e, err := s.deps.EnrollmentSvc.UpdateReadiness(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}
