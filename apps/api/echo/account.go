package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	AwardPointsRequest struct {
		Amount    int  `json:"amount" validate:"gt=0"`
		WeeklyToo bool `json:"weekly_too"`
	}
)

func (req *LoginRequest) Validate(validate *validator.Validate) error {
	req.Email = core.CleanString(req.Email, true /* lower */)
	return validate.Struct(req)
}

type accountApi struct {
	*Server
}

func registerAccountAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, s *Server) {
	api := accountApi{s}

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.GET("/leaderboard", api.leaderboard)

	// authed endpoints
	jg := ag.Group("", jwt)
	jg.POST("/token-refresh", api.refreshToken)
	jg.GET("/me", api.me)
	jg.GET("/:id", api.retrieve)
	jg.GET("/:id/badges", api.badges)
	jg.GET("/:id/stats", api.stats)
	jg.POST("/:id/points", api.awardPoints, teacherMiddleware(), limit)
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}
	if data.Role == account.RoleTeacher {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "teacher accounts are created by an administrator"})
	}

	acc, err := api.Accounts.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	claims, err := api.authenticate(ctx, data.Email, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.Server.refreshToken(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *accountApi) leaderboard(ctx echo.Context) error {
	period := account.Period(ctx.QueryParam("period"))
	if period == "" {
		period = account.PeriodAllTime
	}
	var limit int
	if l := ctx.QueryParam("limit"); l != "" {
		var err error
		if limit, err = strconv.Atoi(l); err != nil || limit < 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be a positive integer"})
		}
	}

	entries, err := api.Accounts.Leaderboard(ctx.Request().Context(), period, limit)
	if err != nil {
		return errors.Wrap(err, "querying leaderboard")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *accountApi) me(ctx echo.Context) error {
	id, err := contextAccountID(ctx)
	if err != nil {
		return err
	}
	acc, err := api.Accounts.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountApi) retrieve(ctx echo.Context) error {
	acc, err := api.Accounts.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountApi) badges(ctx echo.Context) error {
	badges, err := api.Accounts.Badges(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying badges")
	}
	return ctx.JSON(http.StatusOK, badges)
}

func (api *accountApi) stats(ctx echo.Context) error {
	stats, err := api.Accounts.Stats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *accountApi) awardPoints(ctx echo.Context) error {
	var data AwardPointsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AwardPointsRequest")
	}
	if err := api.Validate.Struct(data); err != nil {
		return err
	}

	acc, err := api.Accounts.AwardPoints(ctx.Request().Context(), ctx.Param("id"), data.Amount, data.WeeklyToo)
	if err != nil {
		return errors.Wrap(err, "awarding points")
	}
	return ctx.JSON(http.StatusOK, acc)
}
