package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/notification"
)

func (s *Server) registerNotificationAPI(g *echo.Group) {
	g.POST("/device-tokens", s.registerDevice, requireAuth)
	g.DELETE("/device-tokens/:token", s.unregisterDevice, requireAuth)

	g.GET("/notifications", s.queryNotifications, requireAuth)
	g.POST("/notifications/read-all", s.markAllRead, requireAuth)
	g.POST("/notifications/:id/read", s.markRead, requireAuth)
}

func (s *Server) registerDevice(ctx echo.Context) error {
	var data notification.NewDeviceToken
	if err := bind(ctx, &data, "NewDeviceToken"); err != nil {
		return err
	}
	dt, err := s.deps.NotificationSvc.RegisterDevice(ctx.Request().Context(), principalOf(ctx).UserID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, dt)
}

func (s *Server) unregisterDevice(ctx echo.Context) error {
	if err := s.deps.NotificationSvc.UnregisterDevice(ctx.Request().Context(), principalOf(ctx).UserID, ctx.Param("token")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryNotifications(ctx echo.Context) error {
	filter := notification.QueryFilter{UserID: principalOf(ctx).UserID, UnreadOnly: queryBool(ctx, "unread")}
	notifications, err := s.deps.NotificationSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, notifications)
}

func (s *Server) markRead(ctx echo.Context) error {
	n, err := s.deps.NotificationSvc.MarkRead(ctx.Request().Context(), principalOf(ctx).UserID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (s *Server) markAllRead(ctx echo.Context) error {
	count, err := s.deps.NotificationSvc.MarkAllRead(ctx.Request().Context(), principalOf(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}
