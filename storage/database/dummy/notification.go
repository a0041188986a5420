package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

// insertNotifications expects db to be locked.
func insertNotifications(db *DB, notifs []notification.Notification) []notification.Notification {
	inserted := make([]notification.Notification, 0, len(notifs))
	for _, n := range notifs {
		n.ID = uuid.New().String()
		n.CreatedAt = n.CreatedAt.UTC()
		stored := n
		db.notifications = append(db.notifications, &stored)
		inserted = append(inserted, n)
	}
	return inserted
}

func (repo *notificationRepository) InsertNotifications(
	_ context.Context,
	notifs []notification.Notification,
	_ ...core.DBExecutor,
) ([]notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return insertNotifications(repo.db, notifs), nil
}

func (repo *notificationRepository) QueryNotifications(
	_ context.Context,
	userID string,
	unreadOnly bool,
	_ ...core.DBExecutor,
) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notifs := make([]notification.Notification, 0)
	for i := len(repo.db.notifications) - 1; i >= 0; i-- {
		n := repo.db.notifications[i]
		if n.UserID == userID && !(unreadOnly && n.Read) {
			notifs = append(notifs, *n)
		}
	}
	sort.SliceStable(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationsRead(
	_ context.Context,
	userID string,
	ids []string,
	_ ...core.DBExecutor,
) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, n := range repo.db.notifications {
		if n.UserID != userID || n.Read || (len(ids) > 0 && !contains(ids, n.ID)) {
			continue
		}
		n.Read = true
		cnt++
	}
	return cnt, nil
}
