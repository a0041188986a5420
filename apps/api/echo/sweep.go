package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/sweep"
)

type (
	sweepAPI struct {
		scheduler *sweep.Scheduler
	}

	sweepsResponse struct {
		Jobs      []string        `json:"jobs"`
		Summaries []sweep.Summary `json:"summaries"`
	}
)

func registerSweepAPI(g *echo.Group, jwt echo.MiddlewareFunc, sched *sweep.Scheduler, coordinatorSvc *coordinator.Service) {
	api := sweepAPI{scheduler: sched}

	sweeps := g.Group("/sweeps", jwt, adminOrCoordinatorMiddleware(coordinatorSvc))
	sweeps.GET("", api.sweepList)
	sweeps.POST("/:name/run", api.sweepRun)
}

func (api sweepAPI) sweepList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, sweepsResponse{
		Jobs:      api.scheduler.Jobs(),
		Summaries: api.scheduler.LastSummaries(),
	})
}

// sweepRun runs a job immediately. It waits for an in-flight run of the same job to finish first.
func (api sweepAPI) sweepRun(ctx echo.Context) error {
	summary, err := api.scheduler.RunNow(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "running sweep")
	}
	return ctx.JSON(http.StatusOK, summary)
}
