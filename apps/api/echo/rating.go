package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/review"
)

type ratingApi struct {
	svc  *review.Service
	deps Deps
}

func registerRatingAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := ratingApi{svc: deps.ReviewSvc, deps: deps}

	rg := g.Group("/rating-requests", authed...)
	rg.GET("", api.list)
	rg.POST("", api.create)
}

// Handlers

func (api *ratingApi) list(ctx echo.Context) error {
	res, err := api.svc.ListRatingRequests(ctx.Request().Context(), getViewer(ctx), ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying rating requests")
	}
	return ctx.JSON(http.StatusOK, res)
}

// create answers a pending duplicate with 409 and the pending request.
func (api *ratingApi) create(ctx echo.Context) error {
	var data review.NewRatingRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	rr, err := api.svc.RequestRating(ctx.Request().Context(), getViewer(ctx), data)
	if errors.Cause(err) == review.ErrRatingRequestPending {
		return ctx.JSON(http.StatusConflict, echo.Map{"request": rr, "message": review.ErrRatingRequestPending.Error()})
	}
	if err != nil {
		return errors.Wrap(err, "creating rating request")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"request": rr})
}
