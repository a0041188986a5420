package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/user"
)

func (repo *userRepository) coordinator(rec *userRecord) coordinator.Coordinator {
	return coordinator.Coordinator{User: rec.User, Assignment: rec.coordinator}
}

func (repo *userRepository) QueryCoordinators(_ context.Context, _ ...core.DBExecutor) ([]coordinator.Coordinator, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	coordinators := make([]coordinator.Coordinator, 0)
	for _, rec := range repo.db.users {
		if rec.Role == user.RoleCoordinator {
			coordinators = append(coordinators, repo.coordinator(rec))
		}
	}
	sortCoordinators(coordinators)
	return coordinators, nil
}

func (repo *userRepository) GetCoordinator(_ context.Context, userID string, _ ...core.DBExecutor) (coordinator.Coordinator, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.users[userID]; ok {
		return repo.coordinator(rec), nil
	}
	return coordinator.Coordinator{}, user.ErrNotFound
}

func (repo *userRepository) AssignCoordinator(_ context.Context, userID string, a coordinator.Assignment, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	rec.Role = user.RoleCoordinator
	rec.coordinator = a
	rec.coordinator.RevokedAt = nil
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *userRepository) SetCoordinatorStatus(
	_ context.Context,
	userID string,
	from, to coordinator.Status,
	_ ...core.DBExecutor,
) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.users[userID]
	if !ok || rec.Role != user.RoleCoordinator || rec.coordinator.Status != from {
		return coordinator.ErrConflict
	}
	rec.coordinator.Status = to
	return nil
}

func (repo *userRepository) DemoteCoordinator(
	_ context.Context,
	userID, baseRole string,
	revokedAt time.Time,
	_ ...core.DBExecutor,
) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.users[userID]
	if !ok || rec.Role != user.RoleCoordinator {
		return coordinator.ErrConflict
	}
	revokedAt = revokedAt.UTC()
	rec.Role = baseRole
	rec.coordinator.Status = coordinator.StatusExpired
	rec.coordinator.RevokedAt = &revokedAt
	rec.UpdatedAt = revokedAt
	return nil
}

// sortCoordinators orders by creation, oldest first.
func sortCoordinators(coordinators []coordinator.Coordinator) {
	users := make([]user.User, len(coordinators))
	byID := make(map[string]coordinator.Coordinator, len(coordinators))
	for i, c := range coordinators {
		users[i] = c.User
		byID[c.ID] = c
	}
	sortUsers(users, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	for i, u := range users {
		coordinators[i] = byID[u.ID]
	}
}
