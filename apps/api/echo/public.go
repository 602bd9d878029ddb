package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/core/support"
)

type publicApi struct {
	deps Deps
}

// registerPublicAPI registers the endpoints open to anonymous visitors.
// Signed-in users are recorded as submitters.
func registerPublicAPI(g *echo.Group, public []echo.MiddlewareFunc, deps Deps) {
	api := publicApi{deps: deps}

	pg := g.Group("", public...)
	pg.POST("/facility-submissions", api.submitFacility)
	pg.POST("/school-submissions", api.submitSchool)
	pg.POST("/contact", api.contact)
	pg.GET("/lookups", api.lookups)
	pg.GET("/leagues", api.hierarchy(lookup.League, "leagues"))
	pg.GET("/levels", api.hierarchy(lookup.Level, "levels"))
	pg.GET("/teams", api.hierarchy(lookup.Team, "teams"))
}

func (api *publicApi) submitFacility(ctx echo.Context) error {
	var data directory.NewFacility
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	f, err := api.deps.DirectorySvc.SubmitFacility(ctx.Request().Context(), getViewer(ctx).UserID, data)
	if err != nil {
		return errors.Wrap(err, "submitting facility")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *publicApi) submitSchool(ctx echo.Context) error {
	var data directory.NewSchool
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	s, err := api.deps.DirectorySvc.SubmitSchool(ctx.Request().Context(), getViewer(ctx).UserID, data)
	if err != nil {
		return errors.Wrap(err, "submitting school")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *publicApi) contact(ctx echo.Context) error {
	var data support.NewMessage
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	m, err := api.deps.SupportSvc.Submit(ctx.Request().Context(), getViewer(ctx).UserID, data)
	if err != nil {
		return errors.Wrap(err, "submitting contact message")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"success": true, "id": m.ID})
}

func (api *publicApi) lookups(ctx echo.Context) error {
	values, err := api.deps.LookupSvc.List(ctx.Request().Context(), ctx.QueryParam("category"))
	if err != nil {
		return errors.Wrap(err, "querying lookups")
	}
	if values == nil {
		values = []string{}
	}
	noStore(ctx)
	return ctx.JSON(http.StatusOK, echo.Map{"lookups": values})
}

// hierarchy serves the typeahead of a league, level or team field under key.
func (api *publicApi) hierarchy(category, key string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
		values, err := api.deps.LookupSvc.Hierarchy(ctx.Request().Context(), category, ctx.QueryParam("q"), limit)
		if err != nil {
			return errors.Wrapf(err, "querying %s", key)
		}
		noStore(ctx)
		return ctx.JSON(http.StatusOK, echo.Map{key: values})
	}
}

func noStore(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, max-age=0")
}
