package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core/activity"
)

type gradingApi struct {
	*Server
}

func registerGradingAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, s *Server) {
	api := gradingApi{s}

	sg := g.Group("/submissions", jwt)
	sg.GET("/:entityId", api.retrieve)
	sg.POST("/grade", api.grade, teacherMiddleware(), limit)
}

// retrieve returns the caller's own grade for an assignment or exam.
func (api *gradingApi) retrieve(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	sub, err := api.Activity.Submission(ctx.Request().Context(), ctx.Param("entityId"), id)
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *gradingApi) grade(ctx echo.Context) error {
	var data activity.GradeInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	sub, err := api.Activity.GradeSubmission(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
