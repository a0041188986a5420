package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/task"
)

const taskColumns = `id, title, description, branch, semester, created_by, hod_id, due_date, status, recipients_set,
	reminder_before3_at, reminder_before1_at, reminder_overdue_at, reminders_suppressed, created_at, updated_at`

// reminderColumns maps each threshold to its marker column.
var reminderColumns = map[task.Threshold]string{
	task.ThresholdBefore3: "reminder_before3_at",
	task.ThresholdBefore1: "reminder_before1_at",
	task.ThresholdOverdue: "reminder_overdue_at",
}

type (
	taskRow struct {
		ID                  string      `db:"id"`
		Title               string      `db:"title"`
		Description         string      `db:"description"`
		Branch              string      `db:"branch"`
		Semester            int         `db:"semester"`
		CreatedBy           null.String `db:"created_by"`
		HODID               null.String `db:"hod_id"`
		DueDate             null.Time   `db:"due_date"`
		Status              string      `db:"status"`
		RecipientsSet       bool        `db:"recipients_set"`
		ReminderBefore3At   null.Time   `db:"reminder_before3_at"`
		ReminderBefore1At   null.Time   `db:"reminder_before1_at"`
		ReminderOverdueAt   null.Time   `db:"reminder_overdue_at"`
		RemindersSuppressed string      `db:"reminders_suppressed"`
		CreatedAt           time.Time   `db:"created_at"`
		UpdatedAt           time.Time   `db:"updated_at"`
	}

	teacherRow struct {
		TaskID    string `db:"task_id"`
		TeacherID string `db:"teacher_id"`
	}

	recipientRow struct {
		TaskID      string    `db:"task_id"`
		StudentID   string    `db:"student_id"`
		Status      string    `db:"status"`
		SubmittedAt null.Time `db:"submitted_at"`
	}
)

func (r taskRow) task() task.Task {
	t := task.Task{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Branch:        r.Branch,
		Semester:      r.Semester,
		CreatedBy:     r.CreatedBy.String,
		HODID:         r.HODID.String,
		DueDate:       utcPtr(r.DueDate),
		Status:        task.Status(r.Status),
		Teachers:      make([]string, 0),
		RecipientsSet: r.RecipientsSet,
		Reminders: task.Reminders{
			Before3: utcPtr(r.ReminderBefore3At),
			Before1: utcPtr(r.ReminderBefore1At),
			Overdue: utcPtr(r.ReminderOverdueAt),
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.RecipientsSet {
		t.Recipients = make([]task.Recipient, 0)
	}
	for _, th := range strings.Split(r.RemindersSuppressed, ",") {
		if th != "" {
			t.Reminders.Suppressed = append(t.Reminders.Suppressed, task.Threshold(th))
		}
	}
	return t
}

func (r recipientRow) recipient() task.Recipient {
	return task.Recipient{
		StudentID:   r.StudentID,
		Status:      task.RecipientStatus(r.Status),
		SubmittedAt: utcPtr(r.SubmittedAt),
	}
}

type taskRepository struct {
	db     core.DB
	notifs *notificationRepository
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db core.DB) *taskRepository {
	return &taskRepository{db: db, notifs: NewNotificationRepository(db)}
}

func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return task.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.Status == "" {
		t.Status = task.StatusActive
	}
	if t.Recipients == nil && t.RecipientsSet {
		t.Recipients = make([]task.Recipient, 0)
	}
	if t.Teachers == nil {
		t.Teachers = make([]string, 0)
	}

	suppressed := make([]string, 0, len(t.Reminders.Suppressed))
	for _, th := range t.Reminders.Suppressed {
		suppressed = append(suppressed, string(th))
	}

	err := inTx(ctx, repo.db, exec, func(exe core.DBExecutor) error {
		q := exe.Rebind(`INSERT INTO tasks (` + taskColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		_, err := exe.ExecContext(
			ctx, q,
			t.ID, t.Title, t.Description, t.Branch, t.Semester,
			null.NewString(t.CreatedBy, t.CreatedBy != ""), null.NewString(t.HODID, t.HODID != ""),
			nullTime(t.DueDate), string(t.Status), t.RecipientsSet,
			nullTime(t.Reminders.Before3), nullTime(t.Reminders.Before1), nullTime(t.Reminders.Overdue),
			strings.Join(suppressed, ","), t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting task")
		}

		q = exe.Rebind("INSERT INTO task_teachers (task_id, teacher_id, position) VALUES (?, ?, ?)")
		for i, id := range t.Teachers {
			if _, err = exe.ExecContext(ctx, q, t.ID, id, i); err != nil {
				return errors.Wrap(err, "inserting task teacher")
			}
		}
		return repo.insertRecipients(ctx, exe, t.ID, t.Recipients)
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (repo taskRepository) insertRecipients(ctx context.Context, exe core.DBExecutor, taskID string, recipients []task.Recipient) error {
	q := exe.Rebind("INSERT INTO task_recipients (task_id, student_id, position, status, submitted_at) VALUES (?, ?, ?, ?, ?)")
	for i, r := range recipients {
		status := r.Status
		if status == "" {
			status = task.RecipientPending
		}
		if _, err := exe.ExecContext(ctx, q, taskID, r.StudentID, i, string(status), nullTime(r.SubmittedAt)); err != nil {
			return errors.Wrap(err, "inserting task recipient")
		}
	}
	return nil
}

// loadRelations fills the teachers and the recipients of the tasks.
func (repo taskRepository) loadRelations(ctx context.Context, exe core.DBExecutor, tasks []task.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tasks))
	byID := make(map[string]*task.Task, len(tasks))
	for i := range tasks {
		ids = append(ids, tasks[i].ID)
		byID[tasks[i].ID] = &tasks[i]
	}

	q, args, err := query(exe, "SELECT task_id, teacher_id FROM task_teachers WHERE task_id IN (?) ORDER BY task_id, position", ids)
	if err != nil {
		return errors.Wrap(err, "building teachers query")
	}
	var teachers []teacherRow
	if err = exe.SelectContext(ctx, &teachers, q, args...); err != nil {
		return errors.Wrap(err, "querying task teachers")
	}
	for _, row := range teachers {
		t := byID[row.TaskID]
		t.Teachers = append(t.Teachers, row.TeacherID)
	}

	q, args, err = query(
		exe,
		"SELECT task_id, student_id, status, submitted_at FROM task_recipients WHERE task_id IN (?) ORDER BY task_id, position",
		ids,
	)
	if err != nil {
		return errors.Wrap(err, "building recipients query")
	}
	var recipients []recipientRow
	if err = exe.SelectContext(ctx, &recipients, q, args...); err != nil {
		return errors.Wrap(err, "querying task recipients")
	}
	for _, row := range recipients {
		t := byID[row.TaskID]
		t.Recipients = append(t.Recipients, row.recipient())
	}
	return nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	exe := getExec(repo.db, exec)
	var row taskRow
	q := exe.Rebind("SELECT " + taskColumns + " FROM tasks WHERE id = ?")
	if err := exe.GetContext(ctx, &row, q, id); err != nil {
		return task.Task{}, repo.trapNoRowsErr(err, "finding task by ID")
	}

	tasks := []task.Task{row.task()}
	if err := repo.loadRelations(ctx, exe, tasks); err != nil {
		return task.Task{}, err
	}
	return tasks[0], nil
}

func (repo taskRepository) QueryDueTasks(ctx context.Context, exec ...core.DBExecutor) ([]task.Task, error) {
	exe := getExec(repo.db, exec)
	var rows []taskRow
	q := exe.Rebind("SELECT " + taskColumns + " FROM tasks WHERE status = ? AND due_date IS NOT NULL ORDER BY due_date ASC")
	if err := exe.SelectContext(ctx, &rows, q, string(task.StatusActive)); err != nil {
		return nil, errors.Wrap(err, "querying due tasks")
	}

	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.task())
	}
	if err := repo.loadRelations(ctx, exe, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// exists tells ErrNotFound apart from a lost conditional write.
func (repo taskRepository) exists(ctx context.Context, exe core.DBExecutor, id string) error {
	var cnt int
	if err := exe.GetContext(ctx, &cnt, exe.Rebind("SELECT COUNT(*) FROM tasks WHERE id = ?"), id); err != nil {
		return errors.Wrap(err, "checking task")
	}
	if cnt == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (repo taskRepository) BackfillRecipients(
	ctx context.Context,
	taskID string,
	recipients []task.Recipient,
	exec ...core.DBExecutor,
) error {
	return inTx(ctx, repo.db, exec, func(exe core.DBExecutor) error {
		q := exe.Rebind("UPDATE tasks SET recipients_set = ?, updated_at = ? WHERE id = ? AND recipients_set = ?")
		res, err := exe.ExecContext(ctx, q, true, time.Now().UTC(), taskID, false)
		if err != nil {
			return errors.Wrap(err, "claiming task recipients")
		}
		cnt, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if cnt == 0 {
			if err = repo.exists(ctx, exe, taskID); err != nil {
				return err
			}
			return task.ErrConflict
		}
		return repo.insertRecipients(ctx, exe, taskID, recipients)
	})
}

func (repo taskRepository) SetRecipientStatus(
	ctx context.Context,
	taskID, studentID string,
	status task.RecipientStatus,
	at time.Time,
	exec ...core.DBExecutor,
) error {
	submittedAt := null.TimeFrom(at.UTC())
	if status == task.RecipientPending {
		submittedAt = null.Time{}
	}

	exe := getExec(repo.db, exec)
	q := exe.Rebind("UPDATE task_recipients SET status = ?, submitted_at = ? WHERE task_id = ? AND student_id = ?")
	res, err := exe.ExecContext(ctx, q, string(status), submittedAt, taskID, studentID)
	if err != nil {
		return errors.Wrap(err, "updating recipient status")
	}
	cnt, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if cnt == 0 {
		if err = repo.exists(ctx, exe, taskID); err != nil {
			return err
		}
		return task.ErrRecipientNotFound
	}
	return nil
}

func (repo taskRepository) FireReminder(
	ctx context.Context,
	taskID string,
	fire task.Threshold,
	suppress []task.Threshold,
	at time.Time,
	batch []notification.Notification,
) (bool, error) {
	col, ok := reminderColumns[fire]
	if !ok {
		return false, errors.Errorf("unknown threshold %q", fire)
	}
	at = at.UTC()

	var fired bool
	err := inTx(ctx, repo.db, nil, func(exe core.DBExecutor) error {
		q := exe.Rebind("UPDATE tasks SET " + col + " = ?, updated_at = ? WHERE id = ? AND " + col + " IS NULL")
		res, err := exe.ExecContext(ctx, q, at, at, taskID)
		if err != nil {
			return errors.Wrap(err, "claiming reminder")
		}
		cnt, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if cnt == 0 {
			// already fired: nothing to write
			return repo.exists(ctx, exe, taskID)
		}

		for _, th := range suppress {
			sCol, ok := reminderColumns[th]
			if !ok {
				return errors.Errorf("unknown threshold %q", th)
			}
			q = exe.Rebind(`UPDATE tasks SET ` + sCol + ` = ?, reminders_suppressed =
				CASE WHEN reminders_suppressed = '' THEN CAST(? AS TEXT) ELSE reminders_suppressed || ',' || CAST(? AS TEXT) END
				WHERE id = ? AND ` + sCol + ` IS NULL`)
			if _, err = exe.ExecContext(ctx, q, at, string(th), string(th), taskID); err != nil {
				return errors.Wrapf(err, "suppressing %s", th)
			}
		}

		if _, err = repo.notifs.InsertNotifications(ctx, batch, exe); err != nil {
			return err
		}
		fired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return fired, nil
}
