package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/child"
	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerChildAPI(og *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)
	adminOrParent := rolesMiddleware(user.RoleAdmin, user.RoleParent)

	cg := og.Group("/children")
	cg.GET("", s.queryChildren)
	cg.POST("", s.createChild, adminOrParent)
	cg.GET("/:id", s.retrieveChild)
	cg.PUT("/:id", s.updateChild, adminOrParent)
	cg.DELETE("/:id", s.destroyChild, adminOrParent)
	cg.POST("/:id/parents", s.linkParent, admin)
	cg.DELETE("/:id/parents/:parentID", s.unlinkParent, admin)
}

func (s *Server) queryChildren(ctx echo.Context) error {
	filter := child.QueryFilter{OrganizationID: orgOf(ctx).ID, Search: ctx.QueryParam("search")}
	children, err := s.deps.ChildSvc.Query(ctx.Request().Context(), principalOf(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (s *Server) createChild(ctx echo.Context) error {
	var data child.NewChild
	if err := bind(ctx, &data, "NewChild"); err != nil {
		return err
	}
	c, err := s.deps.ChildSvc.Create(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (s *Server) retrieveChild(ctx echo.Context) error {
	c, err := s.deps.ChildSvc.Get(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) updateChild(ctx echo.Context) error {
	var data child.UpdateChild
	if err := bind(ctx, &data, "UpdateChild"); err != nil {
		return err
	}
	c, err := s.deps.ChildSvc.Update(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) destroyChild(ctx echo.Context) error {
	if err := s.deps.ChildSvc.Delete(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) linkParent(ctx echo.Context) error {
	var data child.LinkParent
	if err := bind(ctx, &data, "LinkParent"); err != nil {
		return err
	}
	c, err := s.deps.ChildSvc.LinkParent(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) unlinkParent(ctx echo.Context) error {
	c, err := s.deps.ChildSvc.UnlinkParent(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), ctx.Param("parentID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}
