package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/user"
)

func (repo userRepository) QueryCoordinators(ctx context.Context, exec ...core.DBExecutor) ([]coordinator.Coordinator, error) {
	exe := getExec(repo.exec, exec)
	var rows []userRow
	q := exe.Rebind("SELECT " + userColumns + " FROM users WHERE role = ? ORDER BY created_at ASC")
	if err := exe.SelectContext(ctx, &rows, q, user.RoleCoordinator); err != nil {
		return nil, errors.Wrap(err, "querying coordinators")
	}

	coordinators := make([]coordinator.Coordinator, 0, len(rows))
	for _, row := range rows {
		coordinators = append(coordinators, row.coordinator())
	}
	return coordinators, nil
}

func (repo userRepository) GetCoordinator(ctx context.Context, userID string, exec ...core.DBExecutor) (coordinator.Coordinator, error) {
	row, err := repo.getRow(ctx, userID, exec)
	if err != nil {
		return coordinator.Coordinator{}, err
	}
	return row.coordinator(), nil
}

func (repo userRepository) AssignCoordinator(ctx context.Context, userID string, a coordinator.Assignment, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	q := exe.Rebind(`UPDATE users SET role = ?,
		coordinator_base_role = ?, coordinator_valid_till = ?, coordinator_grace_days = ?, coordinator_status = ?,
		coordinator_assigned_at = ?, coordinator_assigned_by = ?, coordinator_revoked_at = NULL, updated_at = ?
		WHERE id = ?`)
	res, err := exe.ExecContext(
		ctx, q,
		user.RoleCoordinator,
		a.BaseRole, nullTime(a.ValidTill), a.GraceDays, string(a.Status),
		nullTime(a.AssignedAt), null.NewString(a.AssignedBy, a.AssignedBy != ""), time.Now().UTC(),
		userID,
	)
	if err != nil {
		return errors.Wrap(err, "assigning coordinator")
	}
	cnt, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) SetCoordinatorStatus(
	ctx context.Context,
	userID string,
	from, to coordinator.Status,
	exec ...core.DBExecutor,
) error {
	exe := getExec(repo.exec, exec)
	q := exe.Rebind(`UPDATE users SET coordinator_status = ?
		WHERE id = ? AND role = ? AND COALESCE(coordinator_status, '') = ?`)
	res, err := exe.ExecContext(ctx, q, string(to), userID, user.RoleCoordinator, string(from))
	if err != nil {
		return errors.Wrap(err, "updating coordinator status")
	}
	cnt, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return coordinator.ErrConflict
	}
	return nil
}

func (repo userRepository) DemoteCoordinator(
	ctx context.Context,
	userID, baseRole string,
	revokedAt time.Time,
	exec ...core.DBExecutor,
) error {
	revokedAt = revokedAt.UTC()
	exe := getExec(repo.exec, exec)
	q := exe.Rebind(`UPDATE users SET role = ?, coordinator_status = ?, coordinator_revoked_at = ?, updated_at = ?
		WHERE id = ? AND role = ?`)
	res, err := exe.ExecContext(
		ctx, q,
		baseRole, string(coordinator.StatusExpired), revokedAt, revokedAt,
		userID, user.RoleCoordinator,
	)
	if err != nil {
		return errors.Wrap(err, "demoting coordinator")
	}
	cnt, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if cnt == 0 {
		return coordinator.ErrConflict
	}
	return nil
}
