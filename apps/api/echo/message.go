package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core/message"
)

type messageApi struct {
	*Server
}

func registerMessageAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, s *Server) {
	api := messageApi{s}

	mg := g.Group("/messages", jwt)
	mg.GET("", api.inbox)
	mg.POST("", api.send, limit)
	mg.GET("/conversation/:accountId", api.conversation)
	mg.PATCH("/:id/read", api.markRead)
	mg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *messageApi) inbox(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	msgs, err := api.Messages.Inbox(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying inbox")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) send(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	var data message.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}

	msg, err := api.Messages.Send(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) conversation(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	msgs, err := api.Messages.Conversation(ctx.Request().Context(), id, ctx.Param("accountId"))
	if err != nil {
		return errors.Wrap(err, "querying conversation")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	if err = api.Messages.MarkRead(ctx.Request().Context(), ctx.Param("id"), id); err != nil {
		return errors.Wrap(err, "marking message read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "message marked as read"})
}

func (api *messageApi) destroy(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	if err = api.Messages.Delete(ctx.Request().Context(), ctx.Param("id"), id); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}
