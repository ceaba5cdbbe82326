package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerReportAPI(og *echo.Group) {
	og.GET("/reports/progress", s.progressReport, rolesMiddleware(user.RoleAdmin))
}

func (s *Server) progressReport(ctx echo.Context) error {
	progress, err := s.deps.ReportSvc.ProgressByClassLevel(ctx.Request().Context(), orgOf(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "building progress report")
	}
	return ctx.JSON(http.StatusOK, progress)
}
