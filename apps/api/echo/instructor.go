package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/instructor"
	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerInstructorAPI(og *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)

	ig := og.Group("/instructors")
	ig.GET("", s.queryInstructors, admin)
	ig.POST("", s.createInstructor, admin)
	ig.GET("/:id", s.retrieveInstructor, rolesMiddleware(user.RoleAdmin, user.RoleInstructor))
	ig.PUT("/:id", s.updateInstructor, admin)
	ig.DELETE("/:id", s.destroyInstructor, admin)
}

func (s *Server) queryInstructors(ctx echo.Context) error {
	filter := instructor.QueryFilter{OrganizationID: orgOf(ctx).ID, Search: ctx.QueryParam("search")}
	instructors, err := s.deps.InstructorSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying instructors")
	}
	return ctx.JSON(http.StatusOK, instructors)
}

func (s *Server) createInstructor(ctx echo.Context) error {
	var data instructor.NewInstructor
	if err := bind(ctx, &data, "NewInstructor"); err != nil {
		return err
	}
	org := orgOf(ctx)
	ins, err := s.deps.InstructorSvc.Create(ctx.Request().Context(), org.ID, org.Name, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ins)
}

func (s *Server) retrieveInstructor(ctx echo.Context) error {
	ins, err := s.deps.InstructorSvc.Get(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (s *Server) updateInstructor(ctx echo.Context) error {
	var data instructor.UpdateInstructor
	if err := bind(ctx, &data, "UpdateInstructor"); err != nil {
		return err
	}
	ins, err := s.deps.InstructorSvc.Update(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (s *Server) destroyInstructor(ctx echo.Context) error {
	if err := s.deps.InstructorSvc.Delete(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
