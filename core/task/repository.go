package task

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("task not found")
	ErrRecipientNotFound = errors.New("task recipient not found")
	ErrConflict          = errors.New("task changed concurrently")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (Task, error)
		// QueryDueTasks returns the active tasks having a due date.
		QueryDueTasks(ctx context.Context, exec ...core.DBExecutor) ([]Task, error)
		// BackfillRecipients stores the recipients of a task whose recipients were never set.
		// It returns ErrConflict if they were set in the meantime.
		BackfillRecipients(ctx context.Context, taskID string, recipients []Recipient, exec ...core.DBExecutor) error
		SetRecipientStatus(ctx context.Context, taskID, studentID string, status RecipientStatus, at time.Time, exec ...core.DBExecutor) error
		// FireReminder claims the `fire` marker and, in the same transaction, stamps the `suppress` markers still unset
		// and inserts the notification batch. It inserts nothing and returns false when the marker was already set.
		FireReminder(
			ctx context.Context,
			taskID string,
			fire Threshold,
			suppress []Threshold,
			at time.Time,
			batch []notification.Notification,
		) (bool, error)
	}

	// UserFinder is the subset of user.Repository the reminders need.
	UserFinder interface {
		QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error)
	}
)
