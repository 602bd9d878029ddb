package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/review"
)

type disputeApi struct {
	svc  *review.Service
	deps Deps
}

func registerDisputeAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := disputeApi{svc: deps.ReviewSvc, deps: deps}

	dg := g.Group("/disputes", authed...)
	dg.GET("", api.listMine)
	dg.POST("/:kind/:id/reply", api.reply)
}

// Handlers

func (api *disputeApi) listMine(ctx echo.Context) error {
	disputes, err := api.svc.ListMyDisputes(ctx.Request().Context(), getViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "querying disputes")
	}
	if disputes == nil {
		disputes = []review.Dispute{}
	}
	return ctx.JSON(http.StatusOK, disputes)
}

func (api *disputeApi) reply(ctx echo.Context) error {
	var data review.NewMessage
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	msg, err := api.svc.ReplyToDispute(ctx.Request().Context(), getViewer(ctx), ctx.Param("kind"), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "replying to dispute")
	}
	return ctx.JSON(http.StatusCreated, msg)
}
