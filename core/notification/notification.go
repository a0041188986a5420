// Package notification stores the in-app notifications delivered to portal users.
package notification

import (
	"context"
	"time"

	"github.com/trezcool/academia/core"
)

const KindTaskReminder = "task_reminder"

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	TaskID    string    `json:"task_id,omitempty"`
	Threshold string    `json:"threshold,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type (
	Repository interface {
		// InsertNotifications assigns an ID to every notification it inserts.
		InsertNotifications(ctx context.Context, notifs []Notification, exec ...core.DBExecutor) ([]Notification, error)
		// QueryNotifications returns the user's notifications, newest first.
		QueryNotifications(ctx context.Context, userID string, unreadOnly bool, exec ...core.DBExecutor) ([]Notification, error)
		// MarkNotificationsRead marks the given unread notifications of the user as read (all of them if ids is empty)
		// and returns how many changed.
		MarkNotificationsRead(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, userID, unreadOnly)
}

func (svc *Service) MarkRead(ctx context.Context, userID string, ids ...string) (int, error) {
	return svc.repo.MarkNotificationsRead(ctx, userID, ids)
}
