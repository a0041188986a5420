package coordinator

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	errAssignAdmin   = errors.New("admins cannot be assigned as coordinators")
	errInvalidExpiry = errors.New("invalid expiry date")
	errExpired       = errors.New("the assignment would already be expired")
	errNoBaseRole    = errors.New("a base role is required")
)

// NewAssignment contains information needed to grant the coordinator role.
type NewAssignment struct {
	UserID    string `json:"user_id" validate:"required"`
	BaseRole  string `json:"base_role" validate:"omitempty,baserole"` // defaults to the user's current role
	ValidTill string `json:"valid_till"`                              // empty: never expires
	GraceDays int    `json:"grace_days" validate:"min=0"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.UserID = core.CleanString(na.UserID)
	na.BaseRole = core.CleanString(na.BaseRole, true /* lower */)
	na.ValidTill = core.CleanString(na.ValidTill)

	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.ValidTill != "" && ParseValidTill(na.ValidTill) == nil {
		return core.NewValidationError(errInvalidExpiry, core.FieldError{Field: "valid_till", Error: errInvalidExpiry.Error()})
	}
	return nil
}

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Assign grants the coordinator role to a user, or renews the grant of a current coordinator.
func (svc *Service) Assign(ctx context.Context, na NewAssignment, by string, now time.Time) (Coordinator, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Coordinator{}, err
	}

	c, err := svc.repo.GetCoordinator(ctx, na.UserID)
	if err != nil {
		return Coordinator{}, err
	}
	if c.IsAdmin() {
		return Coordinator{}, core.NewValidationError(errAssignAdmin, core.FieldError{Field: "user_id", Error: errAssignAdmin.Error()})
	}

	baseRole := na.BaseRole
	if baseRole == "" {
		if c.IsCoordinator() {
			baseRole = c.revertRole()
		} else {
			baseRole = c.Role
		}
	}
	if !user.IsBaseRole(baseRole) {
		return Coordinator{}, core.NewValidationError(errNoBaseRole, core.FieldError{Field: "base_role", Error: errNoBaseRole.Error()})
	}

	now = now.UTC()
	a := Assignment{
		BaseRole:   baseRole,
		ValidTill:  ParseValidTill(na.ValidTill),
		GraceDays:  na.GraceDays,
		AssignedAt: &now,
		AssignedBy: by,
	}
	a.Status = a.Effective(now)
	if a.Status == StatusExpired {
		return Coordinator{}, core.NewValidationError(errExpired, core.FieldError{Field: "valid_till", Error: errExpired.Error()})
	}

	if err = svc.repo.AssignCoordinator(ctx, c.ID, a); err != nil {
		return Coordinator{}, errors.Wrap(err, "assigning coordinator")
	}
	c.Role = user.RoleCoordinator
	c.Assignment = a
	return c, nil
}

// Revoke demotes a coordinator to their base role immediately.
func (svc *Service) Revoke(ctx context.Context, userID string, now time.Time) (Coordinator, error) {
	c, err := svc.repo.GetCoordinator(ctx, userID)
	if err != nil {
		return Coordinator{}, err
	}
	if !c.IsCoordinator() {
		return Coordinator{}, ErrNotCoordinator
	}

	now = now.UTC()
	role := c.revertRole()
	if err = svc.repo.DemoteCoordinator(ctx, c.ID, role, now); err != nil {
		if errors.Cause(err) == ErrConflict {
			return Coordinator{}, ErrNotCoordinator
		}
		return Coordinator{}, errors.Wrap(err, "revoking coordinator")
	}
	c.Role = role
	c.Assignment.Status = StatusExpired
	c.Assignment.RevokedAt = &now
	return c, nil
}

// Effective recomputes the status of a coordinator's grant, ignoring the cached one.
func (svc *Service) Effective(ctx context.Context, userID string, now time.Time) (Status, error) {
	c, err := svc.repo.GetCoordinator(ctx, userID)
	if err != nil {
		return "", err
	}
	if !c.IsCoordinator() {
		return "", ErrNotCoordinator
	}
	return c.Assignment.Effective(now), nil
}

func (svc *Service) Query(ctx context.Context) ([]Coordinator, error) {
	return svc.repo.QueryCoordinators(ctx)
}
