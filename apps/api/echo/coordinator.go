package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/coordinator"
)

type (
	coordinatorAPI struct {
		service *coordinator.Service
	}

	// coordinatorResponse carries the status recomputed at request time next to the cached one.
	coordinatorResponse struct {
		coordinator.Coordinator
		Effective coordinator.Status `json:"effective_status"`
	}
)

func newCoordinatorResponse(c coordinator.Coordinator) coordinatorResponse {
	resp := coordinatorResponse{Coordinator: c}
	if c.IsCoordinator() {
		resp.Effective = c.Assignment.Effective(nowFunc())
	} else {
		resp.Effective = coordinator.StatusExpired
	}
	return resp
}

func registerCoordinatorAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *coordinator.Service) {
	api := coordinatorAPI{service: svc}

	coordinators := g.Group("/coordinators", jwt, adminMiddleware())
	coordinators.GET("", api.coordinatorList)
	coordinators.POST("", api.coordinatorAssign)
	coordinators.DELETE("/:id", api.coordinatorRevoke)
}

func (api coordinatorAPI) coordinatorList(ctx echo.Context) error {
	coordinators, err := api.service.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying coordinators")
	}
	resp := make([]coordinatorResponse, 0, len(coordinators))
	for _, c := range coordinators {
		resp = append(resp, newCoordinatorResponse(c))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api coordinatorAPI) coordinatorAssign(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var na coordinator.NewAssignment
	if err = ctx.Bind(&na); err != nil {
		return errors.Wrap(err, "binding coordinator assignment")
	}

	c, err := api.service.Assign(ctx.Request().Context(), na, claims.Subject, nowFunc())
	if err != nil {
		return errors.Wrap(err, "assigning coordinator")
	}
	return ctx.JSON(http.StatusCreated, newCoordinatorResponse(c))
}

func (api coordinatorAPI) coordinatorRevoke(ctx echo.Context) error {
	c, err := api.service.Revoke(ctx.Request().Context(), ctx.Param("id"), nowFunc())
	if err != nil {
		return errors.Wrap(err, "revoking coordinator")
	}
	return ctx.JSON(http.StatusOK, newCoordinatorResponse(c))
}
