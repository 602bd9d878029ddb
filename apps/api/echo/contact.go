package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/contact"
)

type contactApi struct {
	svc  *contact.Service
	deps Deps
}

func registerContactAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := contactApi{svc: deps.ContactSvc, deps: deps}

	cg := g.Group("/contact-requests", authed...)
	cg.GET("", api.list)
	cg.POST("", api.create)
	cg.GET("/check", api.check)
	cg.PATCH("/:id", api.decide)

	pg := g.Group("/parent-contact-requests", authed...)
	pg.GET("", api.listParent)
	pg.POST("", api.createParent)
	pg.GET("/check", api.checkParent)
	pg.PATCH("/:id", api.decideParent)
}

// Handlers

func (api *contactApi) list(ctx echo.Context) error {
	filter := ctx.QueryParam("filter")
	if filter == "" {
		filter = contact.FilterAll
	}

	reqs, err := api.svc.List(ctx.Request().Context(), getViewer(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying contact requests")
	}
	if reqs == nil {
		reqs = []contact.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *contactApi) create(ctx echo.Context) error {
	var data contact.NewRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	req, msg, err := api.svc.Create(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating contact request")
	}
	return createdOrExisting(ctx, req, msg)
}

func (api *contactApi) check(ctx echo.Context) error {
	res, err := api.svc.Check(
		ctx.Request().Context(),
		getViewer(ctx),
		ctx.QueryParam("coachProfileId"),
		ctx.QueryParam("parentProfileId"),
		ctx.QueryParam("playerId"),
	)
	if err != nil {
		return errors.Wrap(err, "checking contact request")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *contactApi) decide(ctx echo.Context) error {
	var data contact.Decision
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	req, err := api.svc.Decide(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "deciding contact request")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *contactApi) listParent(ctx echo.Context) error {
	reqs, err := api.svc.ListIncomingParent(ctx.Request().Context(), getViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "querying parent contact requests")
	}
	if reqs == nil {
		reqs = []contact.ParentRequest{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *contactApi) createParent(ctx echo.Context) error {
	var data contact.NewParentRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	req, msg, err := api.svc.CreateParent(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating parent contact request")
	}
	return createdOrExisting(ctx, req, msg)
}

func (api *contactApi) checkParent(ctx echo.Context) error {
	res, err := api.svc.CheckParent(
		ctx.Request().Context(),
		getViewer(ctx),
		ctx.QueryParam("targetParentId"),
		ctx.QueryParam("playerId"),
	)
	if err != nil {
		return errors.Wrap(err, "checking parent contact request")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *contactApi) decideParent(ctx echo.Context) error {
	var data contact.Decision
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	req, err := api.svc.DecideParent(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "deciding parent contact request")
	}
	return ctx.JSON(http.StatusOK, req)
}

// createdOrExisting answers 201 for a new request, 200 with the service message for an existing one.
func createdOrExisting(ctx echo.Context, req interface{}, msg string) error {
	if msg != "" {
		return ctx.JSON(http.StatusOK, echo.Map{"request": req, "message": msg})
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"request": req})
}
