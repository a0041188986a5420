package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/user"
)

const userColumns = `id, name, email, role, branch, semester, is_active,
	coordinator_base_role, coordinator_valid_till, coordinator_grace_days, coordinator_status,
	coordinator_assigned_at, coordinator_assigned_by, coordinator_revoked_at,
	created_at, updated_at`

type userRow struct {
	ID                    string      `db:"id"`
	Name                  string      `db:"name"`
	Email                 null.String `db:"email"`
	Role                  string      `db:"role"`
	Branch                string      `db:"branch"`
	Semester              int         `db:"semester"`
	IsActive              bool        `db:"is_active"`
	CoordinatorBaseRole   null.String `db:"coordinator_base_role"`
	CoordinatorValidTill  null.Time   `db:"coordinator_valid_till"`
	CoordinatorGraceDays  int         `db:"coordinator_grace_days"`
	CoordinatorStatus     null.String `db:"coordinator_status"`
	CoordinatorAssignedAt null.Time   `db:"coordinator_assigned_at"`
	CoordinatorAssignedBy null.String `db:"coordinator_assigned_by"`
	CoordinatorRevokedAt  null.Time   `db:"coordinator_revoked_at"`
	CreatedAt             time.Time   `db:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email.String,
		Role:      r.Role,
		Branch:    r.Branch,
		Semester:  r.Semester,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r userRow) coordinator() coordinator.Coordinator {
	return coordinator.Coordinator{
		User: r.user(),
		Assignment: coordinator.Assignment{
			BaseRole:   r.CoordinatorBaseRole.String,
			ValidTill:  utcPtr(r.CoordinatorValidTill),
			GraceDays:  r.CoordinatorGraceDays,
			Status:     coordinator.Status(r.CoordinatorStatus.String),
			AssignedAt: utcPtr(r.CoordinatorAssignedAt),
			AssignedBy: r.CoordinatorAssignedBy.String,
			RevokedAt:  utcPtr(r.CoordinatorRevokedAt),
		},
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

type userRepository struct {
	exec core.DBExecutor
}

var (
	_ user.Repository        = (*userRepository)(nil) // interface compliance check
	_ coordinator.Repository = (*userRepository)(nil)
)

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

// trapNoRowsErr maps "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	var cnt int
	q := exe.Rebind("SELECT COUNT(*) FROM users WHERE LOWER(email) = ?")
	if err := exe.GetContext(ctx, &cnt, q, strings.ToLower(email)); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if cnt > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	usr.CreatedAt = usr.CreatedAt.UTC()
	usr.UpdatedAt = usr.UpdatedAt.UTC()

	exe := getExec(repo.exec, exec)
	q := exe.Rebind(`INSERT INTO users (id, name, email, role, branch, semester, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exe.ExecContext(
		ctx, q,
		usr.ID, usr.Name, null.NewString(usr.Email, usr.Email != ""), usr.Role, usr.Branch, usr.Semester, usr.IsActive,
		usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) getRow(ctx context.Context, id string, exec []core.DBExecutor) (userRow, error) {
	exe := getExec(repo.exec, exec)
	var row userRow
	q := exe.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := exe.GetContext(ctx, &row, q, id); err != nil {
		return userRow{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return row, nil
}

func (repo userRepository) GetUser(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	row, err := repo.getRow(ctx, id, exec)
	if err != nil {
		return user.User{}, err
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsers(
	ctx context.Context,
	filter *user.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]user.User, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.IDs != nil {
			if len(filter.IDs) == 0 {
				return make([]user.User, 0), nil
			}
			conds = append(conds, "id IN (?)")
			args = append(args, filter.IDs)
		}
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)")
			args = append(args, val, val)
		}
		if len(filter.Roles) > 0 {
			conds = append(conds, "role IN (?)")
			args = append(args, filter.Roles)
		}
		if filter.Branch != "" {
			conds = append(conds, "LOWER(branch) = ?")
			args = append(args, strings.ToLower(filter.Branch))
		}
		if filter.Semester != 0 {
			conds = append(conds, "semester = ?")
			args = append(args, filter.Semester)
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	ordering = user.CleanOrdering(ordering)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}

	exe := getExec(repo.exec, exec)
	q, args, err := query(exe, "SELECT "+userColumns+" FROM users"+where(conds)+orderBy(ordering), args...)
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}
	var rows []userRow
	if err = exe.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}
