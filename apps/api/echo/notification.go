package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type (
	CountResponse struct {
		Count int `json:"count"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

type notificationApi struct {
	*Server
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := notificationApi{s}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.list)
	ng.GET("/unread-count", api.unreadCount)
	ng.PATCH("/read-all", api.markAllRead)
	ng.PATCH("/:id/read", api.markRead)
	ng.DELETE("/:id", api.destroy)
}

// Handlers

func (api *notificationApi) list(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	ns, err := api.Notifications.List(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	count, err := api.Notifications.UnreadCount(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	if err = api.Notifications.MarkRead(ctx.Request().Context(), ctx.Param("id"), id); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "notification marked as read"})
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	count, err := api.Notifications.MarkAllRead(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	if err = api.Notifications.Delete(ctx.Request().Context(), ctx.Param("id"), id); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
