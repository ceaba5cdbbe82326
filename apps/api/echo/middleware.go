package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/organization"
	"github.com/lanes-app/lanes/services/metrics"
)

const contextOrgKey = "organization"

func requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !principalOf(ctx).IsAuthenticated() {
			return errUnauthorized
		}
		return next(ctx)
	}
}

// rolesMiddleware restricts the endpoint to the callers holding one of roles. Super admins hold them all.
func rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if principalOf(ctx).HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// orgAccessMiddleware loads the organization of the path for its members and super admins.
// Other callers get a 404 so that organizations cannot be probed.
func (s *Server) orgAccessMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		orgID := ctx.Param("orgID")
		if !principalOf(ctx).CanAccessOrganization(orgID) {
			return errHttpNotFound
		}
		org, err := s.deps.OrgSvc.Get(ctx.Request().Context(), orgID)
		if err != nil {
			if core.IsNotFound(err) {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding organization")
		}
		ctx.Set(contextOrgKey, org)
		return next(ctx)
	}
}

func orgOf(ctx echo.Context) organization.Organization {
	org, _ := ctx.Get(contextOrgKey).(organization.Organization)
	return org
}

// metricsMiddleware records the requests count and duration for Prometheus.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			// let the error handler write the response so that its status is recorded
			ctx.Error(err)
		}

		path := ctx.Path()
		if path == "" {
			path = "unmatched"
		}
		method := ctx.Request().Method
		status := strconv.Itoa(ctx.Response().Status)
		metrics.HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
		return nil
	}
}
