package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
)

type notificationRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	Kind      string      `db:"kind"`
	TaskID    null.String `db:"task_id"`
	Threshold null.String `db:"threshold"`
	Title     string      `db:"title"`
	Message   string      `db:"message"`
	IsRead    bool        `db:"is_read"`
	CreatedAt time.Time   `db:"created_at"`
}

func newNotificationRow(n notification.Notification) notificationRow {
	return notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      n.Kind,
		TaskID:    null.NewString(n.TaskID, n.TaskID != ""),
		Threshold: null.NewString(n.Threshold, n.Threshold != ""),
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.Read,
		CreatedAt: n.CreatedAt.UTC(),
	}
}

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      r.Kind,
		TaskID:    r.TaskID.String,
		Threshold: r.Threshold.String,
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type notificationRepository struct {
	exec core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{exec: exec}
}

func (repo notificationRepository) InsertNotifications(
	ctx context.Context,
	notifs []notification.Notification,
	exec ...core.DBExecutor,
) ([]notification.Notification, error) {
	inserted := make([]notification.Notification, 0, len(notifs))
	if len(notifs) == 0 {
		return inserted, nil
	}

	rows := make([]notificationRow, 0, len(notifs))
	for _, n := range notifs {
		n.ID = uuid.New().String()
		n.CreatedAt = n.CreatedAt.UTC()
		rows = append(rows, newNotificationRow(n))
		inserted = append(inserted, n)
	}

	_, err := getExec(repo.exec, exec).NamedExecContext(
		ctx,
		`INSERT INTO notifications (id, user_id, kind, task_id, threshold, title, message, is_read, created_at)
		VALUES (:id, :user_id, :kind, :task_id, :threshold, :title, :message, :is_read, :created_at)`,
		rows,
	)
	if err != nil {
		return nil, errors.Wrap(err, "inserting notifications")
	}
	return inserted, nil
}

func (repo notificationRepository) QueryNotifications(
	ctx context.Context,
	userID string,
	unreadOnly bool,
	exec ...core.DBExecutor,
) ([]notification.Notification, error) {
	conds := []string{"user_id = ?"}
	args := []interface{}{userID}
	if unreadOnly {
		conds = append(conds, "is_read = ?")
		args = append(args, false)
	}

	exe := getExec(repo.exec, exec)
	q := exe.Rebind(`SELECT id, user_id, kind, task_id, threshold, title, message, is_read, created_at
		FROM notifications` + where(conds) + " ORDER BY created_at DESC")
	var rows []notificationRow
	if err := exe.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}

	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, row.notification())
	}
	return notifs, nil
}

func (repo notificationRepository) MarkNotificationsRead(
	ctx context.Context,
	userID string,
	ids []string,
	exec ...core.DBExecutor,
) (int, error) {
	conds := []string{"user_id = ?", "is_read = ?"}
	args := []interface{}{true, userID, false}
	if len(ids) > 0 {
		conds = append(conds, "id IN (?)")
		args = append(args, ids)
	}

	exe := getExec(repo.exec, exec)
	q, args, err := query(exe, "UPDATE notifications SET is_read = ?"+where(conds), args...)
	if err != nil {
		return 0, errors.Wrap(err, "building notifications update")
	}
	res, err := exe.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return rowsAffected(res)
}
