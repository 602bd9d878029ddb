package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/player"
	"github.com/myhockeyrecruiting/mhr/core/review"
)

type playerApi struct {
	svc     *player.Service
	reviews *review.Service
	deps    Deps
}

func registerPlayerAPI(g *echo.Group, authed, public []echo.MiddlewareFunc, deps Deps) {
	api := playerApi{svc: deps.PlayerSvc, reviews: deps.ReviewSvc, deps: deps}

	pg := g.Group("/players")

	// anonymous visitors get masked players
	pg.GET("", api.list, public...)
	pg.GET("/:id", api.retrieve, public...)
	pg.GET("/:id/reviews", api.listReviews, public...)

	pg.POST("", api.create, authed...)
	pg.PUT("/:id", api.update, authed...)
	pg.DELETE("/:id", api.destroy, authed...)
	pg.POST("/:id/reviews", api.createReview, authed...)
	pg.POST("/reviews/:reviewId/dispute", api.disputeReview, authed...)
}

// Handlers

func (api *playerApi) list(ctx echo.Context) error {
	filter := player.QueryFilter{
		Search: ctx.QueryParam("search"),
		Mine:   queryBool(ctx, "mine"),
		Pagination: core.Pagination{
			Limit:  queryInt(ctx, "limit", 0),
			Offset: queryInt(ctx, "offset", 0),
		},
	}

	players, err := api.svc.List(ctx.Request().Context(), getViewer(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying players")
	}
	return ctx.JSON(http.StatusOK, players)
}

func (api *playerApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting player")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *playerApi) create(ctx echo.Context) error {
	var data player.NewPlayer
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating player")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *playerApi) update(ctx echo.Context) error {
	var data player.UpdatePlayer
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	p, err := api.svc.Update(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating player")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *playerApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getViewer(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting player")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *playerApi) listReviews(ctx echo.Context) error {
	reviews, err := api.reviews.ListPlayerReviews(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying player reviews")
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *playerApi) createReview(ctx echo.Context) error {
	var data review.NewPlayerReview
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	r, err := api.reviews.CreatePlayerReview(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating player review")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *playerApi) disputeReview(ctx echo.Context) error {
	var data review.NewDispute
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDispute")
	}

	d, err := api.reviews.DisputePlayerReview(ctx.Request().Context(), getViewer(ctx), ctx.Param("reviewId"), data)
	if err != nil {
		return errors.Wrap(err, "disputing player review")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"success": true, "message": review.MsgReviewDisputed, "dispute": d})
}
