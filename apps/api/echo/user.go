package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/user"
)

type userAPI struct {
	service *user.Service
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := userAPI{service: svc}

	users := g.Group("/users", jwt, adminMiddleware())
	users.GET("", api.userQuery)
	users.GET("/roles", api.roles)
	users.GET("/:id", api.userRetrieve)
}

func (api userAPI) userQuery(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding user filter")
	}
	users, err := api.service.Query(ctx.Request().Context(), &filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api userAPI) userRetrieve(ctx echo.Context) error {
	usr, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api userAPI) roles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}
