package coordinator_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func newService(t *testing.T) (*coordinator.Service, userCoordinatorRepository) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	repo := setup(t)
	return coordinator.NewService(repo, validate), repo
}

func TestService_Assign(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	admin := testutil.CreateUser(t, repo, "Admin", "admin@test.cd", user.RoleAdmin, "", 0, true)
	teacher := testutil.CreateUser(t, repo, "Teacher", "teacher@test.cd", user.RoleTeacher, "", 0, true)
	student := testutil.CreateUser(t, repo, "Student", "student@test.cd", user.RoleStudent, "CSE", 3, true)

	tests := []struct {
		name    string
		na      coordinator.NewAssignment
		wantErr bool
		errIs   error
	}{
		{name: "missing user id", na: coordinator.NewAssignment{}, wantErr: true},
		{name: "unknown user", na: coordinator.NewAssignment{UserID: "lol"}, errIs: user.ErrNotFound},
		{name: "admin", na: coordinator.NewAssignment{UserID: admin.ID}, wantErr: true},
		{name: "invalid base role", na: coordinator.NewAssignment{UserID: teacher.ID, BaseRole: user.RoleAdmin}, wantErr: true},
		{name: "negative grace", na: coordinator.NewAssignment{UserID: teacher.ID, GraceDays: -1}, wantErr: true},
		{name: "invalid expiry", na: coordinator.NewAssignment{UserID: teacher.ID, ValidTill: "next week"}, wantErr: true},
		{name: "already expired", na: coordinator.NewAssignment{UserID: teacher.ID, ValidTill: "2024-03-01"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Assign(ctx, tt.na, admin.ID, now)
			require.Error(t, err)
			if tt.errIs != nil {
				assert.Equal(t, tt.errIs, err)
			}
			got, gErr := repo.GetCoordinator(ctx, teacher.ID)
			require.NoError(t, gErr)
			assert.Equal(t, user.RoleTeacher, got.Role, "nothing assigned")
		})
	}

	t.Run("assign teacher", func(t *testing.T) {
		c, err := svc.Assign(ctx, coordinator.NewAssignment{UserID: teacher.ID, ValidTill: "2024-03-20", GraceDays: 2}, admin.ID, now)
		require.NoError(t, err)
		assert.Equal(t, user.RoleCoordinator, c.Role)
		assert.Equal(t, user.RoleTeacher, c.Assignment.BaseRole, "defaults to the current role")
		assert.Equal(t, coordinator.StatusActive, c.Assignment.Status)
		assert.Equal(t, admin.ID, c.Assignment.AssignedBy)

		stored, err := repo.GetCoordinator(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, user.RoleCoordinator, stored.Role)
		assert.Equal(t, 2, stored.Assignment.GraceDays)
		require.NotNil(t, stored.Assignment.ValidTill)
		assert.True(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC).Equal(*stored.Assignment.ValidTill))
	})

	t.Run("renew keeps the base role", func(t *testing.T) {
		c, err := svc.Assign(ctx, coordinator.NewAssignment{UserID: teacher.ID}, admin.ID, now)
		require.NoError(t, err)
		assert.Equal(t, user.RoleTeacher, c.Assignment.BaseRole)
		assert.Nil(t, c.Assignment.ValidTill, "never expires")
	})

	t.Run("explicit base role", func(t *testing.T) {
		c, err := svc.Assign(ctx, coordinator.NewAssignment{UserID: student.ID, BaseRole: " HOD "}, admin.ID, now)
		require.NoError(t, err)
		assert.Equal(t, user.RoleHOD, c.Assignment.BaseRole)
	})

	coordinators, err := svc.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, coordinators, 2)
}

func TestService_Revoke(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tomorrow := now.Add(day)

	c := testutil.CreateCoordinator(t, repo, "Teacher", user.RoleTeacher, &tomorrow, 0, coordinator.StatusActive)
	student := testutil.CreateUser(t, repo, "Student", "", user.RoleStudent, "CSE", 1, true)

	_, err := svc.Revoke(ctx, student.ID, now)
	assert.Equal(t, coordinator.ErrNotCoordinator, err)
	_, err = svc.Revoke(ctx, "lol", now)
	assert.Equal(t, user.ErrNotFound, err)

	revoked, err := svc.Revoke(ctx, c.ID, now)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, revoked.Role)
	assert.Equal(t, coordinator.StatusExpired, revoked.Assignment.Status)
	require.NotNil(t, revoked.Assignment.RevokedAt)
	assert.True(t, now.Equal(*revoked.Assignment.RevokedAt))

	_, err = svc.Revoke(ctx, c.ID, now)
	assert.Equal(t, coordinator.ErrNotCoordinator, err, "revoked twice")
}

func TestService_Effective(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-day)

	// the cached status says active; the grant expired yesterday
	c := testutil.CreateCoordinator(t, repo, "Teacher", user.RoleTeacher, &yesterday, 0, coordinator.StatusActive)
	status, err := svc.Effective(ctx, c.ID, now)
	require.NoError(t, err)
	assert.Equal(t, coordinator.StatusExpired, status)

	g := testutil.CreateCoordinator(t, repo, "HOD", user.RoleHOD, &yesterday, 5, coordinator.StatusActive)
	status, err = svc.Effective(ctx, g.ID, now)
	require.NoError(t, err)
	assert.Equal(t, coordinator.StatusGrace, status)

	student := testutil.CreateUser(t, repo, "Student", "", user.RoleStudent, "CSE", 1, true)
	_, err = svc.Effective(ctx, student.ID, now)
	assert.Equal(t, coordinator.ErrNotCoordinator, err)
}
