package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/event"
)

type eventApi struct {
	svc  *event.Service
	deps Deps
}

func registerEventAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := eventApi{svc: deps.EventSvc, deps: deps}

	eg := g.Group("/events", authed...)
	eg.GET("", api.list)
	eg.POST("", api.create)
	eg.GET("/upcoming", api.upcoming)
	eg.POST("/rsvp", api.rsvp)
	eg.GET("/:id", api.retrieve)
	eg.PUT("/:id", api.update)
	eg.DELETE("/:id", api.destroy)
	eg.GET("/:id/rsvps", api.attendees)
}

// Handlers

func (api *eventApi) list(ctx echo.Context) error {
	events, err := api.svc.List(ctx.Request().Context(), getViewer(ctx), queryBool(ctx, "mine"))
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.View{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	e, err := api.svc.Create(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) upcoming(ctx echo.Context) error {
	events, err := api.svc.Upcoming(ctx.Request().Context(), getViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "querying upcoming events")
	}
	if events == nil {
		events = []event.Upcoming{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	e, err := api.svc.Update(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getViewer(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) attendees(ctx echo.Context) error {
	att, err := api.svc.Attendees(ctx.Request().Context(), getViewer(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying attendees")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *eventApi) rsvp(ctx echo.Context) error {
	var data event.NewRsvp
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	res, err := api.svc.RSVP(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "saving rsvp")
	}
	return ctx.JSON(http.StatusOK, res)
}
