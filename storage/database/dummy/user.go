package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *DB
}

var (
	_ user.Repository        = (*userRepository)(nil) // interface compliance check
	_ coordinator.Repository = (*userRepository)(nil)
)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) users() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, rec := range repo.db.users {
		users = append(users, rec.User)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.db.users {
		if rec.Email != "" && strings.EqualFold(rec.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = uuid.New().String()
	usr.CreatedAt = usr.CreatedAt.UTC()
	usr.UpdatedAt = usr.UpdatedAt.UTC()
	repo.db.users[usr.ID] = &userRecord{User: usr}
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.users[id]; ok {
		return rec.User, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(
	_ context.Context,
	filter *user.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0)
	for _, u := range repo.users() {
		if matches(u, filter) {
			users = append(users, u)
		}
	}
	sortUsers(users, ordering)
	return users, nil
}

// matches applies AND operation on the filter fields.
func matches(u user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.IDs != nil && !contains(filter.IDs, u.ID) {
		return false
	}
	// users with search keyword matching any Name or Email ?
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(strings.ToLower(u.Email), search) {
			return false
		}
	}
	// users with any of the specified roles
	if len(filter.Roles) > 0 && !contains(filter.Roles, u.Role) {
		return false
	}
	if filter.Branch != "" && !strings.EqualFold(filter.Branch, u.Branch) {
		return false
	}
	if filter.Semester != 0 && filter.Semester != u.Semester {
		return false
	}
	if filter.IsActive != nil && *filter.IsActive != u.IsActive {
		return false
	}
	return true
}

func contains(vals []string, val string) bool {
	for _, v := range vals {
		if v == val {
			return true
		}
	}
	return false
}

// sortUsers orders by the given fields, newest first by default.
func sortUsers(users []user.User, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareField(users[i], users[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareField(a, b user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "role":
		return strings.Compare(a.Role, b.Role)
	case "branch":
		return strings.Compare(a.Branch, b.Branch)
	case "semester":
		return a.Semester - b.Semester
	case "is_active":
		return boolInt(a.IsActive) - boolInt(b.IsActive)
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
