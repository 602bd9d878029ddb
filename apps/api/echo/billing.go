package echoapi

import (
	"io/ioutil"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/billing"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBody        = 1 << 20
)

type billingApi struct {
	svc  *billing.Service
	deps Deps
}

func registerBillingAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := billingApi{svc: deps.BillingSvc, deps: deps}

	bg := g.Group("/subscription")
	bg.GET("/status", api.status, authed...)
	bg.POST("/checkout", api.checkout, authed...)
	bg.POST("/portal", api.portal, authed...)

	// called by Stripe, authenticated by its signature
	bg.POST("/webhook", api.webhook)
}

// Handlers

func (api *billingApi) status(ctx echo.Context) error {
	st, err := api.svc.Status(ctx.Request().Context(), getViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "getting billing status")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *billingApi) checkout(ctx echo.Context) error {
	var data billing.CheckoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckoutRequest")
	}
	data.Origin = api.origin(ctx)

	url, err := api.svc.Checkout(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating checkout session")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"url": url})
}

func (api *billingApi) portal(ctx echo.Context) error {
	var data billing.PortalRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PortalRequest")
	}

	url, err := api.svc.Portal(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating portal session")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"url": url})
}

func (api *billingApi) webhook(ctx echo.Context) error {
	payload, err := ioutil.ReadAll(http.MaxBytesReader(ctx.Response(), ctx.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}

	err = api.svc.HandleWebhook(ctx.Request().Context(), payload, ctx.Request().Header.Get(stripeSignatureHeader))
	if errors.Cause(err) == billing.ErrWebhookNotConfigured {
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"error": "Webhook not configured"})
	}
	if err != nil {
		return errors.Wrap(err, "handling webhook")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"received": true})
}

// origin is the frontend the customer returns to after checkout.
func (api *billingApi) origin(ctx echo.Context) string {
	if o := ctx.Request().Header.Get(echo.HeaderOrigin); o != "" {
		return o
	}
	return api.deps.Conf.FrontendBaseURL
}
