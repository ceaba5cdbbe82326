package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/parent"
	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerParentAPI(og *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)
	adminOrParent := rolesMiddleware(user.RoleAdmin, user.RoleParent)

	pg := og.Group("/parents")
	pg.GET("", s.queryParents, admin)
	pg.POST("", s.createParent, admin)
	pg.GET("/:id", s.retrieveParent, adminOrParent)
	pg.PUT("/:id", s.updateParent, adminOrParent)
	pg.DELETE("/:id", s.destroyParent, admin)
}

func (s *Server) queryParents(ctx echo.Context) error {
	filter := parent.QueryFilter{OrganizationID: orgOf(ctx).ID, Search: ctx.QueryParam("search")}
	parents, err := s.deps.ParentSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	return ctx.JSON(http.StatusOK, parents)
}

func (s *Server) createParent(ctx echo.Context) error {
	var data parent.NewParent
	if err := bind(ctx, &data, "NewParent"); err != nil {
		return err
	}
	org := orgOf(ctx)
	prt, err := s.deps.ParentSvc.Create(ctx.Request().Context(), org.ID, org.Name, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, prt)
}

func (s *Server) retrieveParent(ctx echo.Context) error {
	prt, err := s.deps.ParentSvc.Get(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prt)
}

func (s *Server) updateParent(ctx echo.Context) error {
	var data parent.UpdateParent
	if err := bind(ctx, &data, "UpdateParent"); err != nil {
		return err
	}
	prt, err := s.deps.ParentSvc.Update(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prt)
}

func (s *Server) destroyParent(ctx echo.Context) error {
	if err := s.deps.ParentSvc.Delete(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
