package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/review"
	"github.com/myhockeyrecruiting/mhr/core/support"
)

type integrationsApi struct {
	deps Deps
}

// registerZapierAPI registers the pull endpoints of Zapier workflows.
func registerZapierAPI(g *echo.Group, apiKey echo.MiddlewareFunc, deps Deps) {
	api := integrationsApi{deps: deps}

	zg := g.Group("/zapier", apiKey)
	zg.GET("/disputes", api.zapierDisputes)
	zg.GET("/facility-submissions", api.zapierFacilities)
	zg.GET("/contact-messages", api.zapierContactMessages)
}

// registerCronAPI registers the scheduled jobs.
func registerCronAPI(g *echo.Group, cronSecret echo.MiddlewareFunc, deps Deps) {
	api := integrationsApi{deps: deps}

	cg := g.Group("/cron", cronSecret)
	cg.GET("/event-reminders", api.eventReminders)
	cg.POST("/event-reminders", api.eventReminders)
}

func (api *integrationsApi) zapierDisputes(ctx echo.Context) error {
	disputes, err := api.deps.ReviewSvc.ZapierDisputes(ctx.Request().Context(), ctx.QueryParam("status"), queryInt(ctx, "limit", 0))
	if err != nil {
		return errors.Wrap(err, "querying disputes")
	}
	if disputes == nil {
		disputes = []review.Dispute{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"disputes": disputes})
}

func (api *integrationsApi) zapierFacilities(ctx echo.Context) error {
	fs, err := api.deps.DirectorySvc.ZapierFacilities(ctx.Request().Context(), ctx.QueryParam("status"), queryInt(ctx, "limit", 0))
	if err != nil {
		return errors.Wrap(err, "querying facility submissions")
	}
	if fs == nil {
		fs = []directory.Facility{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"submissions": fs})
}

func (api *integrationsApi) zapierContactMessages(ctx echo.Context) error {
	msgs, err := api.deps.SupportSvc.ZapierList(ctx.Request().Context(), ctx.QueryParam("status"), queryInt(ctx, "limit", 0))
	if err != nil {
		return errors.Wrap(err, "querying contact messages")
	}
	if msgs == nil {
		msgs = []support.Message{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

func (api *integrationsApi) eventReminders(ctx echo.Context) error {
	res, err := api.deps.EventSvc.SendReminders(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "sending event reminders")
	}
	return ctx.JSON(http.StatusOK, res)
}
