package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/directory"
)

type directoryApi struct {
	svc  *directory.Service
	deps Deps
}

// registerDirectoryAPI registers the public pages of the approved facilities, teams and schools.
// Reviews are open to signed-in parents and coaches.
func registerDirectoryAPI(g *echo.Group, authed, public []echo.MiddlewareFunc, deps Deps) {
	api := directoryApi{svc: deps.DirectorySvc, deps: deps}

	fg := g.Group("/facilities")
	fg.GET("", api.facilities, public...)
	fg.GET("/:slug", api.facility, public...)
	fg.GET("/:slug/reviews", api.facilityReviews, public...)
	fg.POST("/:slug/reviews", api.reviewFacility, authed...)

	sg := g.Group("/teams-and-schools")
	sg.GET("", api.schools, public...)
	sg.GET("/:slug", api.school, public...)
	sg.GET("/:slug/reviews", api.schoolReviews, public...)
	sg.POST("/:slug/reviews", api.reviewSchool, authed...)
}

// Handlers

func (api *directoryApi) facilities(ctx echo.Context) error {
	cards, err := api.svc.Facilities(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing facilities")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"facilities": cards})
}

func (api *directoryApi) facility(ctx echo.Context) error {
	f, err := api.svc.Facility(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting facility")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"facility": f})
}

func (api *directoryApi) facilityReviews(ctx echo.Context) error {
	reviews, err := api.svc.FacilityReviews(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "querying facility reviews")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}

func (api *directoryApi) reviewFacility(ctx echo.Context) error {
	var data directory.NewReview
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	r, err := api.svc.ReviewFacility(ctx.Request().Context(), getViewer(ctx), ctx.Param("slug"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing facility")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"review": r})
}

func (api *directoryApi) schools(ctx echo.Context) error {
	cards, err := api.svc.Schools(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing schools")
	}
	noStore(ctx)
	return ctx.JSON(http.StatusOK, echo.Map{"schools": cards})
}

func (api *directoryApi) school(ctx echo.Context) error {
	s, err := api.svc.School(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting school")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"school": s})
}

func (api *directoryApi) schoolReviews(ctx echo.Context) error {
	filter := directory.ReviewFilter{
		AgeBracket: ctx.QueryParam("ageBracket"),
		Gender:     ctx.QueryParam("gender"),
		League:     ctx.QueryParam("league"),
	}
	reviews, err := api.svc.SchoolReviews(ctx.Request().Context(), ctx.Param("slug"), filter)
	if err != nil {
		return errors.Wrap(err, "querying school reviews")
	}
	noStore(ctx)
	return ctx.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}

func (api *directoryApi) reviewSchool(ctx echo.Context) error {
	var data directory.NewSchoolReview
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	r, err := api.svc.ReviewSchool(ctx.Request().Context(), getViewer(ctx), ctx.Param("slug"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing school")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"review": r})
}
