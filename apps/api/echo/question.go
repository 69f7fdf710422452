package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core/activity"
)

type RateRequest struct {
	Useful *bool `json:"useful" validate:"required"`
}

type questionApi struct {
	*Server
}

func registerQuestionAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, s *Server) {
	api := questionApi{s}

	qg := g.Group("/questions", jwt)
	qg.POST("", api.ask, limit)
	qg.GET("/:id", api.retrieve)
	qg.POST("/:id/answers", api.answer, limit)
	qg.POST("/:id/answers/:answerId/like", api.like, limit)
	qg.POST("/:id/answers/:answerId/rate", api.rate, limit)
}

// Handlers

func (api *questionApi) ask(ctx echo.Context) error {
	authorID, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	var data activity.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}

	q, err := api.Activity.AskQuestion(ctx.Request().Context(), authorID, data)
	if err != nil {
		return errors.Wrap(err, "asking question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) retrieve(ctx echo.Context) error {
	q, err := api.Activity.GetQuestion(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) answer(ctx echo.Context) error {
	authorID, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	var data activity.NewAnswer
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnswer")
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}

	res, err := api.Activity.SubmitAnswer(ctx.Request().Context(), ctx.Param("id"), authorID, data)
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *questionApi) like(ctx echo.Context) error {
	ans, err := api.Activity.LikeAnswer(ctx.Request().Context(), ctx.Param("id"), ctx.Param("answerId"))
	if err != nil {
		return errors.Wrap(err, "liking answer")
	}
	return ctx.JSON(http.StatusOK, ans)
}

func (api *questionApi) rate(ctx echo.Context) error {
	raterID, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	var data RateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RateRequest")
	}
	if err = api.Validate.Struct(data); err != nil {
		return err
	}

	ans, err := api.Activity.RateAnswer(ctx.Request().Context(), ctx.Param("id"), ctx.Param("answerId"), raterID, *data.Useful)
	if err != nil {
		return errors.Wrap(err, "rating answer")
	}
	return ctx.JSON(http.StatusOK, ans)
}
