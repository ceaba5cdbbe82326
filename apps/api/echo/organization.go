package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/organization"
	"github.com/lanes-app/lanes/core/parent"
	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerOrganizationAPI(g *echo.Group) {
	superAdmin := rolesMiddleware(user.RoleSuperAdmin)

	// un-authed endpoints
	// TODO: rate limit `/signup` & `/parents/register`
	g.POST("/organizations/signup", s.signup)
	g.POST("/organizations/:orgID/parents/register", s.registerParent)

	g.GET("/organizations", s.queryOrganizations, requireAuth, superAdmin)
	g.POST("/organizations", s.createOrganization, requireAuth, superAdmin)
}

func (s *Server) registerOrgAPI(og *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)

	og.GET("", s.retrieveOrganization)
	og.PUT("", s.updateOrganization, admin)
	og.DELETE("", s.destroyOrganization, rolesMiddleware(user.RoleSuperAdmin))

	og.GET("/admins", s.queryAdmins, admin)
	og.POST("/admins", s.createAdmin, admin)
	og.DELETE("/admins/:adminID", s.destroyAdmin, admin)
}

type signupResponse struct {
	Organization organization.Organization `json:"organization"`
	Admin        user.User                 `json:"admin"`
}

func (s *Server) signup(ctx echo.Context) error {
	var data organization.Signup
	if err := bind(ctx, &data, "Signup"); err != nil {
		return err
	}
	org, usr, err := s.deps.OrgSvc.Signup(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, signupResponse{Organization: org, Admin: usr})
}

// registerParent lets parents sign themselves up into an organization.
func (s *Server) registerParent(ctx echo.Context) error {
	c := ctx.Request().Context()
	org, err := s.deps.OrgSvc.Get(c, ctx.Param("orgID"))
	if err != nil {
		return err
	}
	var data parent.NewParent
	if err = bind(ctx, &data, "NewParent"); err != nil {
		return err
	}
	prt, err := s.deps.ParentSvc.Create(c, org.ID, org.Name, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, prt)
}

func (s *Server) queryOrganizations(ctx echo.Context) error {
	filter := organization.QueryFilter{Search: ctx.QueryParam("search")}
	ordering := new(Ordering)
	ordering.Bind(ctx, organizationOrderings)

	orgs, err := s.deps.OrgSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying organizations")
	}
	return ctx.JSON(http.StatusOK, orgs)
}

func (s *Server) createOrganization(ctx echo.Context) error {
	var data organization.NewOrganization
	if err := bind(ctx, &data, "NewOrganization"); err != nil {
		return err
	}
	org, err := s.deps.OrgSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, org)
}

func (s *Server) retrieveOrganization(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, orgOf(ctx))
}

func (s *Server) updateOrganization(ctx echo.Context) error {
	var data organization.UpdateOrganization
	if err := bind(ctx, &data, "UpdateOrganization"); err != nil {
		return err
	}
	org, err := s.deps.OrgSvc.Update(ctx.Request().Context(), orgOf(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, org)
}

func (s *Server) destroyOrganization(ctx echo.Context) error {
	if err := s.deps.OrgSvc.Delete(ctx.Request().Context(), orgOf(ctx).ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryAdmins(ctx echo.Context) error {
	admins, err := s.deps.OrgSvc.QueryAdmins(ctx.Request().Context(), orgOf(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying admins")
	}
	return ctx.JSON(http.StatusOK, admins)
}

func (s *Server) createAdmin(ctx echo.Context) error {
	var data user.NewUser
	if err := bind(ctx, &data, "NewUser"); err != nil {
		return err
	}
	adm, err := s.deps.OrgSvc.CreateAdmin(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, adm)
}

func (s *Server) destroyAdmin(ctx echo.Context) error {
	err := s.deps.OrgSvc.DeleteAdmin(ctx.Request().Context(), principalOf(ctx), orgOf(ctx).ID, ctx.Param("adminID"))
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
