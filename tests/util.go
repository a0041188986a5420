package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/task"
	"github.com/trezcool/academia/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, role, branch string,
	semester int,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		Branch:    branch,
		Semester:  semester,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCoordinator creates a user of baseRole and grants them the coordinator role.
func CreateCoordinator(
	t *testing.T,
	repo interface {
		user.Repository
		coordinator.Repository
	},
	name, baseRole string,
	validTill *time.Time,
	graceDays int,
	status coordinator.Status,
	createdAt ...time.Time,
) coordinator.Coordinator {
	usr := CreateUser(t, repo, name, "", baseRole, "", 0, true, createdAt...)
	a := coordinator.Assignment{
		BaseRole:  baseRole,
		ValidTill: validTill,
		GraceDays: graceDays,
		Status:    status,
	}
	if err := repo.AssignCoordinator(context.Background(), usr.ID, a); err != nil {
		t.Fatalf("CreateCoordinator() failed: %v", err)
	}
	c, err := repo.GetCoordinator(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("CreateCoordinator() failed: %v", err)
	}
	return c
}

func CreateTask(t *testing.T, repo task.Repository, tk task.Task) task.Task {
	now := time.Now().UTC()
	if tk.CreatedAt.IsZero() {
		tk.CreatedAt = now
	}
	if tk.UpdatedAt.IsZero() {
		tk.UpdatedAt = tk.CreatedAt
	}
	if tk.Status == "" {
		tk.Status = task.StatusActive
	}
	tk, err := repo.CreateTask(context.Background(), tk)
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return tk
}

func TimePtr(t time.Time) *time.Time { return &t }
func BoolPtr(b bool) *bool           { return &b }
