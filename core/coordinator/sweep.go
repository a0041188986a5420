package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/user"
)

const JobName = "coordinator"

// sweep actions
const (
	ActionDemoted   = "demoted"
	ActionUnchanged = "unchanged"
)

var (
	// errors
	ErrNotCoordinator = errors.New("user is not a coordinator")
	ErrConflict       = errors.New("coordinator changed concurrently")
)

type (
	// Coordinator is a user along with their coordinator grant.
	// Assignment is the zero value for users never assigned.
	Coordinator struct {
		user.User
		Assignment Assignment `json:"coordinator"`
	}

	Repository interface {
		// QueryCoordinators returns every user whose active role is user.RoleCoordinator.
		QueryCoordinators(ctx context.Context, exec ...core.DBExecutor) ([]Coordinator, error)
		// GetCoordinator returns any user, coordinator or not; user.ErrNotFound if missing.
		GetCoordinator(ctx context.Context, userID string, exec ...core.DBExecutor) (Coordinator, error)
		// AssignCoordinator sets the user's role to user.RoleCoordinator and stores the assignment.
		AssignCoordinator(ctx context.Context, userID string, a Assignment, exec ...core.DBExecutor) error
		// SetCoordinatorStatus updates the cached status, only if it is still `from` and the user is still a coordinator.
		// It returns ErrConflict otherwise.
		SetCoordinatorStatus(ctx context.Context, userID string, from, to Status, exec ...core.DBExecutor) error
		// DemoteCoordinator reverts the role to baseRole, marks the assignment expired and stamps revokedAt in one write.
		// It returns ErrConflict if the user is no longer a coordinator.
		DemoteCoordinator(ctx context.Context, userID, baseRole string, revokedAt time.Time, exec ...core.DBExecutor) error
	}
)

func (c Coordinator) IsActiveCoordinator(now time.Time) bool {
	return c.IsCoordinator() && c.Assignment.Effective(now) != StatusExpired
}

// revertRole is the role a coordinator goes back to.
func (c Coordinator) revertRole() string {
	if user.IsBaseRole(c.Assignment.BaseRole) {
		return c.Assignment.BaseRole
	}
	return user.RoleStudent
}

// Sweeper demotes expired coordinators and refreshes the cached status of the others.
type Sweeper struct {
	repo   Repository
	logger core.Logger
}

var _ sweep.Job = (*Sweeper)(nil) // interface compliance check

func NewSweeper(repo Repository, logger core.Logger) *Sweeper {
	return &Sweeper{repo: repo, logger: logger}
}

func (sw *Sweeper) Name() string { return JobName }

func (sw *Sweeper) RunOnce(ctx context.Context, now time.Time) (summary sweep.Summary, err error) {
	began := time.Now()
	summary = sweep.NewSummary(JobName, now)
	defer func() { summary.Finish(now.Add(time.Since(began))) }()

	coordinators, err := sw.repo.QueryCoordinators(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "querying coordinators")
	}

	for i, c := range coordinators {
		if ctx.Err() != nil {
			ids := make([]string, 0, len(coordinators)-i)
			for _, rest := range coordinators[i:] {
				ids = append(ids, rest.ID)
			}
			summary.SkipRemaining(ids, sweep.ReasonCancelled)
			break
		}
		sw.reconcile(ctx, &summary, c, now)
	}
	return summary, nil
}

func (sw *Sweeper) reconcile(ctx context.Context, summary *sweep.Summary, c Coordinator, now time.Time) {
	stored := c.Assignment.Status
	next := c.Assignment.Effective(now)

	var err error
	var action string
	switch {
	case next == StatusExpired:
		action = ActionDemoted
		err = sw.repo.DemoteCoordinator(ctx, c.ID, c.revertRole(), now)
	case next != stored:
		action = "status:" + string(next)
		err = sw.repo.SetCoordinatorStatus(ctx, c.ID, stored, next)
	default:
		summary.NoChange(c.ID, ActionUnchanged)
		return
	}

	switch {
	case err == nil:
		summary.Changes(c.ID, action)
		if action == ActionDemoted {
			sw.logger.Info(fmt.Sprintf("coordinator %s demoted to %s", c.ID, c.revertRole()))
		}
	case errors.Cause(err) == ErrConflict:
		summary.Skip(c.ID, sweep.ReasonConflict)
	default:
		summary.Fail(c.ID, errors.Wrapf(err, "%s %s", action, c.ID))
	}
}
