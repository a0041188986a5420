package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/task"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

// clone copies a task so that callers never share its slices with the store.
func clone(t task.Task) task.Task {
	t.Teachers = append([]string(nil), t.Teachers...)
	t.Recipients = append([]task.Recipient(nil), t.Recipients...)
	t.Reminders.Suppressed = append([]task.Threshold(nil), t.Reminders.Suppressed...)
	return t
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	if t.Status == "" {
		t.Status = task.StatusActive
	}
	if t.Recipients == nil && t.RecipientsSet {
		t.Recipients = make([]task.Recipient, 0)
	}
	stored := clone(t)
	repo.db.tasks[t.ID] = &stored
	return clone(stored), nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string, _ ...core.DBExecutor) (task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return clone(*t), nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryDueTasks(_ context.Context, _ ...core.DBExecutor) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tasks := make([]task.Task, 0)
	for _, t := range repo.db.tasks {
		if t.IsDue() {
			tasks = append(tasks, clone(*t))
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(*tasks[j].DueDate) })
	return tasks, nil
}

func (repo *taskRepository) BackfillRecipients(_ context.Context, taskID string, recipients []task.Recipient, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.tasks[taskID]
	if !ok {
		return task.ErrNotFound
	}
	if t.RecipientsSet {
		return task.ErrConflict
	}
	t.Recipients = append(make([]task.Recipient, 0, len(recipients)), recipients...)
	t.RecipientsSet = true
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *taskRepository) SetRecipientStatus(
	_ context.Context,
	taskID, studentID string,
	status task.RecipientStatus,
	at time.Time,
	_ ...core.DBExecutor,
) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.tasks[taskID]
	if !ok {
		return task.ErrNotFound
	}
	for i := range t.Recipients {
		if t.Recipients[i].StudentID == studentID {
			at = at.UTC()
			t.Recipients[i].Status = status
			t.Recipients[i].SubmittedAt = &at
			if status == task.RecipientPending {
				t.Recipients[i].SubmittedAt = nil
			}
			return nil
		}
	}
	return task.ErrRecipientNotFound
}

func (repo *taskRepository) FireReminder(
	_ context.Context,
	taskID string,
	fire task.Threshold,
	suppress []task.Threshold,
	at time.Time,
	batch []notification.Notification,
) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.tasks[taskID]
	if !ok {
		return false, task.ErrNotFound
	}
	at = at.UTC()
	if !t.Reminders.Set(fire, at) {
		return false, nil
	}
	for _, th := range suppress {
		if t.Reminders.Set(th, at) {
			t.Reminders.Suppressed = append(t.Reminders.Suppressed, th)
		}
	}
	t.UpdatedAt = at
	insertNotifications(repo.db, batch)
	return true, nil
}
