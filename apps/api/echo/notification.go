package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/notification"
)

type (
	notificationAPI struct {
		service *notification.Service
	}

	markReadRequest struct {
		IDs []string `json:"ids"` // empty: all unread
	}
)

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *notification.Service) {
	api := notificationAPI{service: svc}

	notifs := g.Group("/notifications", jwt)
	notifs.GET("", api.notificationList)
	notifs.POST("/read", api.notificationMarkRead)
}

func (api notificationAPI) notificationList(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	notifs, err := api.service.List(ctx.Request().Context(), claims.Subject, queryBool(ctx, "unread"))
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api notificationAPI) notificationMarkRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data markReadRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding notification ids")
	}

	n, err := api.service.MarkRead(ctx.Request().Context(), claims.Subject, data.IDs...)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"updated": n})
}
