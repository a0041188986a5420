package coordinator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/tests"
)

const day = 24 * time.Hour

type userCoordinatorRepository interface {
	user.Repository
	coordinator.Repository
}

func setup(t *testing.T) userCoordinatorRepository {
	db, err := dummydb.Open()
	require.NoError(t, err)
	return dummydb.NewUserRepository(db)
}

// countingRepo counts the writes and fails the ones targeting failIDs.
type countingRepo struct {
	userCoordinatorRepository
	writes  int
	failIDs map[string]bool
	cancel  context.CancelFunc // called after the first write
}

func (r *countingRepo) written(userID string) error {
	r.writes++
	if r.cancel != nil {
		r.cancel()
	}
	if r.failIDs[userID] {
		return errors.New("write failed")
	}
	return nil
}

func (r *countingRepo) SetCoordinatorStatus(ctx context.Context, userID string, from, to coordinator.Status, exec ...core.DBExecutor) error {
	if err := r.written(userID); err != nil {
		return err
	}
	return r.userCoordinatorRepository.SetCoordinatorStatus(ctx, userID, from, to, exec...)
}

func (r *countingRepo) DemoteCoordinator(ctx context.Context, userID, baseRole string, revokedAt time.Time, exec ...core.DBExecutor) error {
	if err := r.written(userID); err != nil {
		return err
	}
	return r.userCoordinatorRepository.DemoteCoordinator(ctx, userID, baseRole, revokedAt, exec...)
}

func TestSweeper_Expiry(t *testing.T) {
	repo := setup(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-day)

	c := testutil.CreateCoordinator(t, repo, "Teacher", user.RoleTeacher, &yesterday, 0, coordinator.StatusActive)

	summary, err := coordinator.NewSweeper(repo, testutil.NewLogger()).RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Changed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, sweep.Result{ID: c.ID, Outcome: sweep.OutcomeChanged, Action: coordinator.ActionDemoted}, summary.Results[0])

	got, err := repo.GetCoordinator(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, got.Role)
	assert.Equal(t, coordinator.StatusExpired, got.Assignment.Status)
	require.NotNil(t, got.Assignment.RevokedAt)
	assert.True(t, now.Equal(*got.Assignment.RevokedAt))

	// no longer a coordinator
	coordinators, err := repo.QueryCoordinators(context.Background())
	require.NoError(t, err)
	assert.Empty(t, coordinators)
}

func TestSweeper_Grace(t *testing.T) {
	repo := setup(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-day)

	c := testutil.CreateCoordinator(t, repo, "HOD", user.RoleHOD, &yesterday, 3, coordinator.StatusActive)

	summary, err := coordinator.NewSweeper(repo, testutil.NewLogger()).RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, "status:grace", summary.Results[0].Action)

	got, err := repo.GetCoordinator(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleCoordinator, got.Role, "no demotion in grace")
	assert.Equal(t, coordinator.StatusGrace, got.Assignment.Status)
	assert.Nil(t, got.Assignment.RevokedAt)
}

func TestSweeper_Idempotent(t *testing.T) {
	repo := &countingRepo{userCoordinatorRepository: setup(t)}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday, tomorrow := now.Add(-day), now.Add(day)

	testutil.CreateCoordinator(t, repo, "expired", user.RoleTeacher, &yesterday, 0, coordinator.StatusActive)
	testutil.CreateCoordinator(t, repo, "grace", user.RoleTeacher, &yesterday, 2, coordinator.StatusActive)
	testutil.CreateCoordinator(t, repo, "active", user.RoleStudent, &tomorrow, 0, coordinator.StatusActive)
	testutil.CreateCoordinator(t, repo, "stale", user.RoleStudent, &tomorrow, 0, coordinator.StatusGrace)
	testutil.CreateCoordinator(t, repo, "forever", user.RoleHOD, nil, 0, coordinator.StatusActive)

	sw := coordinator.NewSweeper(repo, testutil.NewLogger())
	first, err := sw.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Processed)
	assert.Equal(t, 3, first.Changed)
	assert.Equal(t, 2, first.Unchanged)
	assert.Equal(t, 3, repo.writes)

	second, err := sw.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 4, second.Processed, "the demoted user is no longer a coordinator")
	assert.Equal(t, 0, second.Changed)
	assert.Equal(t, 4, second.Unchanged)
	assert.Equal(t, 3, repo.writes, "no additional writes")
}

func TestSweeper_FailureIsolation(t *testing.T) {
	repo := &countingRepo{userCoordinatorRepository: setup(t), failIDs: make(map[string]bool)}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-day)

	ts := now.Add(-time.Hour)
	first := testutil.CreateCoordinator(t, repo, "first", user.RoleTeacher, &yesterday, 0, coordinator.StatusActive, ts)
	broken := testutil.CreateCoordinator(t, repo, "broken", user.RoleTeacher, &yesterday, 0, coordinator.StatusActive, ts.Add(time.Minute))
	last := testutil.CreateCoordinator(t, repo, "last", user.RoleTeacher, &yesterday, 0, coordinator.StatusActive, ts.Add(2*time.Minute))
	repo.failIDs[broken.ID] = true

	logger := testutil.NewLogger()
	summary, err := coordinator.NewSweeper(repo, logger).RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Changed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, sweep.OutcomeFailed, summary.Results[1].Outcome)
	assert.Contains(t, summary.Results[1].Error, "write failed")

	for _, id := range []string{first.ID, last.ID} {
		got, err := repo.GetCoordinator(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, user.RoleTeacher, got.Role)
	}
	got, err := repo.GetCoordinator(context.Background(), broken.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleCoordinator, got.Role, "retried on the next run")
}

func TestSweeper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &countingRepo{userCoordinatorRepository: setup(t), cancel: cancel}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-day)

	ts := now.Add(-time.Hour)
	for i, name := range []string{"a", "b", "c"} {
		testutil.CreateCoordinator(t, repo, name, user.RoleTeacher, &yesterday, 0, coordinator.StatusActive, ts.Add(time.Duration(i)*time.Minute))
	}

	summary, err := coordinator.NewSweeper(repo, testutil.NewLogger()).RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, sweep.ReasonCancelled, summary.Results[2].Action)
	assert.Equal(t, 1, repo.writes)
}

type failingQueryRepo struct {
	userCoordinatorRepository
}

func (failingQueryRepo) QueryCoordinators(context.Context, ...core.DBExecutor) ([]coordinator.Coordinator, error) {
	return nil, errors.New("connection refused")
}

func TestSweeper_QueryFailure(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	summary, err := coordinator.NewSweeper(failingQueryRepo{setup(t)}, testutil.NewLogger()).RunOnce(context.Background(), now)
	assert.EqualError(t, err, "querying coordinators: connection refused")
	assert.Equal(t, coordinator.JobName, summary.Job)
	assert.Zero(t, summary.Processed)
}

type conflictRepo struct {
	userCoordinatorRepository
}

func (conflictRepo) SetCoordinatorStatus(context.Context, string, coordinator.Status, coordinator.Status, ...core.DBExecutor) error {
	return coordinator.ErrConflict
}

func TestSweeper_Conflict(t *testing.T) {
	repo := setup(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-day)
	testutil.CreateCoordinator(t, repo, "grace", user.RoleTeacher, &yesterday, 2, coordinator.StatusActive)

	summary, err := coordinator.NewSweeper(conflictRepo{repo}, testutil.NewLogger()).RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, sweep.ReasonConflict, summary.Results[0].Action)
}
