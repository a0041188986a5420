package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/user"
)

var nowFunc = time.Now // mockable

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// adminOrCoordinatorMiddleware lets admins and coordinators whose grant is not expired through.
// The grant is resolved at request time, so a coordinator past their grace period is refused
// even before the sweep demotes them.
func adminOrCoordinatorMiddleware(svc *coordinator.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}

			status, err := svc.Effective(ctx.Request().Context(), claims.Subject, nowFunc())
			switch errors.Cause(err) {
			case nil:
			case coordinator.ErrNotCoordinator, user.ErrNotFound:
				return errHttpForbidden
			default:
				return errors.Wrap(err, "resolving coordinator status")
			}
			if status == coordinator.StatusExpired {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
