package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerAuthAPI(g *echo.Group) {
	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/login", s.login)
	ag.POST("/logout", s.logout)
	ag.POST("/password-reset", s.resetPassword)
	ag.POST("/password-reset-confirm", s.confirmPasswordReset)

	mg := g.Group("/mobile")
	mg.POST("/login", s.mobileLogin)
	mg.POST("/token-refresh", s.refreshToken, requireAuth)

	// authed endpoints
	g.GET("/me", s.me, requireAuth)
	g.PUT("/me", s.updateMe, requireAuth)
}

func (s *Server) authenticate(ctx echo.Context) (user.User, error) {
	var data LoginRequest
	if err := bind(ctx, &data, "LoginRequest"); err != nil {
		return user.User{}, err
	}
	data.Clean()
	if err := s.deps.Validate.Struct(data); err != nil {
		return user.User{}, err
	}

	usr, err := s.deps.UserSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrAuthenticationFailed {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "authenticating")
	}
	return usr, nil
}

// login opens a web session.
func (s *Server) login(ctx echo.Context) error {
	usr, err := s.authenticate(ctx)
	if err != nil {
		return err
	}
	sessionID, err := s.deps.Sessions.Create(ctx.Request().Context(), usr.ID, s.conf.Server.SessionTTL)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	s.setSessionCookie(ctx, sessionID)
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) logout(ctx echo.Context) error {
	if cookie, err := ctx.Cookie(s.conf.Server.SessionCookieName); err == nil && cookie.Value != "" {
		if err = s.deps.Sessions.Delete(ctx.Request().Context(), cookie.Value); err != nil {
			return errors.Wrap(err, "deleting session")
		}
	}
	s.clearSessionCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

// mobileLogin returns a bearer token.
func (s *Server) mobileLogin(ctx echo.Context) error {
	usr, err := s.authenticate(ctx)
	if err != nil {
		return err
	}
	token, err := s.tokens.GenerateToken(s.tokens.NewClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) refreshToken(ctx echo.Context) error {
	claims, ok := ctx.Get(contextClaimsKey).(Claims)
	if !ok {
		// session-authenticated requests have no token to refresh
		return errInvalidToken
	}
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	token, err := s.tokens.refresh(usr, claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bind(ctx, &data, "PasswordResetRequest"); err != nil {
		return err
	}
	data.Clean()
	if err := s.deps.Validate.Struct(data); err != nil {
		return err
	}

	if err := s.deps.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		s.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bind(ctx, &data, "ResetUserPassword"); err != nil {
		return err
	}
	if _, err := s.deps.UserSvc.ResetPassword(ctx.Request().Context(), data, s.deps.Validate); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (s *Server) me(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	res := MeResponse{User: usr}
	c := ctx.Request().Context()
	switch {
	case usr.IsInstructor():
		ins, err := s.deps.InstructorSvc.GetByUser(c, usr.OrganizationID, usr.ID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding instructor profile")
		}
		res.InstructorID = ins.ID
	case usr.IsParent():
		prt, err := s.deps.ParentSvc.GetByUser(c, usr.OrganizationID, usr.ID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding parent profile")
		}
		res.ParentID = prt.ID
	}
	return ctx.JSON(http.StatusOK, res)
}

// updateMe changes the name or the password of the caller.
func (s *Server) updateMe(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	var data UpdateMeRequest
	if err = bind(ctx, &data, "UpdateMeRequest"); err != nil {
		return err
	}

	uu := user.UpdateUser{Name: data.Name, Password: data.Password, PasswordConfirm: data.PasswordConfirm}
	c := ctx.Request().Context()
	if err = uu.Validate(c, usr, s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}
	usr, err = s.deps.UserSvc.Update(c, usr, uu)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}
