package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := notificationApi{svc: deps.NotificationSvc}

	ng := g.Group("/notifications", authed...)
	ng.GET("", api.list)
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("/mark-all-read", api.markAllRead)
	ng.POST("/:id/read", api.markRead)
}

func (api *notificationApi) list(ctx echo.Context) error {
	filter := notification.QueryFilter{
		UnreadOnly: queryBool(ctx, "unreadOnly"),
		Limit:      queryInt(ctx, "limit", 0),
	}

	ns, err := api.svc.List(ctx.Request().Context(), getViewer(ctx).UserID, filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	n, err := api.svc.UnreadCount(ctx.Request().Context(), getViewer(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"count": n})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	if err := api.svc.MarkRead(ctx.Request().Context(), getViewer(ctx).UserID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	n, err := api.svc.MarkAllRead(ctx.Request().Context(), getViewer(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"success": true, "updated": n})
}
