package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/review"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

type coachApi struct {
	svc     user.Service
	reviews *review.Service
	deps    Deps
}

// CoachView is a coach with the summary of its visible reviews.
type CoachView struct {
	user.CoachProfile
	review.Rating
}

func registerCoachAPI(g *echo.Group, authed, public []echo.MiddlewareFunc, deps Deps) {
	api := coachApi{svc: deps.UserSvc, reviews: deps.ReviewSvc, deps: deps}

	cg := g.Group("/coaches")
	cg.GET("", api.list, public...)
	cg.GET("/:id", api.retrieve, public...)
	cg.GET("/:id/reviews", api.listReviews, public...)

	cg.POST("/:id/reviews", api.createReview, authed...)
	cg.POST("/reviews/:reviewId/dispute", api.disputeReview, authed...)
}

// Handlers

func (api *coachApi) list(ctx echo.Context) error {
	filter := user.CoachFilter{
		Search:    ctx.QueryParam("search"),
		League:    core.CleanString(ctx.QueryParam("league")),
		Team:      core.CleanString(ctx.QueryParam("team")),
		Level:     core.CleanString(ctx.QueryParam("level")),
		BirthYear: queryInt(ctx, "birthYear", 0),
		Pagination: core.Pagination{
			Limit:  queryInt(ctx, "limit", 0),
			Offset: queryInt(ctx, "offset", 0),
		},
	}

	coaches, err := api.svc.QueryCoaches(ctx.Request().Context(), getViewer(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying coaches")
	}

	ids := make([]string, 0, len(coaches))
	for _, c := range coaches {
		ids = append(ids, c.ID)
	}
	ratings, err := api.reviews.CoachRatings(ctx.Request().Context(), ids)
	if err != nil {
		return errors.Wrap(err, "getting coach ratings")
	}

	views := make([]CoachView, 0, len(coaches))
	for _, c := range coaches {
		views = append(views, CoachView{CoachProfile: c, Rating: ratings[c.ID]})
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *coachApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetCoach(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting coach")
	}
	ratings, err := api.reviews.CoachRatings(ctx.Request().Context(), []string{c.ID})
	if err != nil {
		return errors.Wrap(err, "getting coach ratings")
	}
	return ctx.JSON(http.StatusOK, CoachView{CoachProfile: c, Rating: ratings[c.ID]})
}

func (api *coachApi) listReviews(ctx echo.Context) error {
	reviews, err := api.reviews.ListCoachReviews(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying coach reviews")
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *coachApi) createReview(ctx echo.Context) error {
	var data review.NewCoachReview
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	r, err := api.reviews.CreateCoachReview(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating coach review")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *coachApi) disputeReview(ctx echo.Context) error {
	var data review.NewDispute
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDispute")
	}

	d, err := api.reviews.DisputeCoachReview(ctx.Request().Context(), getViewer(ctx), ctx.Param("reviewId"), data)
	if err != nil {
		return errors.Wrap(err, "disputing coach review")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"success": true, "message": review.MsgReviewDisputed, "dispute": d})
}
