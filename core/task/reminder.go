package task

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/user"
)

const (
	JobName = "task_reminder"

	reminderTemplate = "task_reminder"
	dueLayout        = "Mon, 02 Jan 2006 15:04 MST"
)

// sweep actions
const (
	ActionBackfilled = "backfilled"
	ActionNotDue     = "not_due"
	ActionNotified   = "already_notified"
)

type reminderMailData struct {
	Name    string
	Message string
	TaskID  string
}

// ReminderSweeper backfills task recipients and fires each reminder threshold at most once per task.
// Only the most relevant threshold fires; the earlier ones still unset are stamped as suppressed.
type ReminderSweeper struct {
	repo    Repository
	users   UserFinder
	mailSvc core.EmailService
	logger  core.Logger
}

var _ sweep.Job = (*ReminderSweeper)(nil) // interface compliance check

func NewReminderSweeper(repo Repository, users UserFinder, mailSvc core.EmailService, logger core.Logger) *ReminderSweeper {
	return &ReminderSweeper{repo: repo, users: users, mailSvc: mailSvc, logger: logger}
}

func (sw *ReminderSweeper) Name() string { return JobName }

func (sw *ReminderSweeper) RunOnce(ctx context.Context, now time.Time) (summary sweep.Summary, err error) {
	began := time.Now()
	summary = sweep.NewSummary(JobName, now)
	defer func() { summary.Finish(now.Add(time.Since(began))) }()

	tasks, err := sw.repo.QueryDueTasks(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "querying due tasks")
	}

	for i, t := range tasks {
		if ctx.Err() != nil {
			ids := make([]string, 0, len(tasks)-i)
			for _, rest := range tasks[i:] {
				ids = append(ids, rest.ID)
			}
			summary.SkipRemaining(ids, sweep.ReasonCancelled)
			break
		}
		sw.process(ctx, &summary, t, now)
	}
	return summary, nil
}

func (sw *ReminderSweeper) process(ctx context.Context, summary *sweep.Summary, t Task, now time.Time) {
	id := t.ID
	if !t.IsDue() {
		summary.NoChange(id, ActionNotDue)
		return
	}

	var changed bool
	var actions []string
	if !t.RecipientsSet {
		var err error
		if t, changed, err = sw.backfill(ctx, t); err != nil {
			summary.Fail(id, errors.Wrap(err, "backfilling recipients"))
			return
		}
		if changed {
			actions = append(actions, ActionBackfilled)
		}
		if !t.IsDue() {
			// closed concurrently
			actions = append(actions, ActionNotDue)
			summary.NoChange(id, strings.Join(actions, " "))
			return
		}
	}

	th, crossed := ThresholdFor(*t.DueDate, now)
	switch {
	case !crossed:
		actions = append(actions, ActionNotDue)
	case t.Reminders.IsSet(th):
		actions = append(actions, ActionNotified)
	default:
		var suppress []Threshold
		for _, s := range Superseded(th) {
			if !t.Reminders.IsSet(s) {
				suppress = append(suppress, s)
			}
		}

		fired, err := sw.fire(ctx, t, th, suppress, now)
		if err != nil {
			summary.Fail(id, errors.Wrapf(err, "firing %s", th))
			return
		}
		if !fired {
			if !changed {
				summary.Skip(id, sweep.ReasonConflict)
				return
			}
			actions = append(actions, sweep.ReasonConflict)
			break
		}
		changed = true
		actions = append(actions, firedAction(th, suppress))
	}

	if changed {
		summary.Changes(id, strings.Join(actions, " "))
	} else {
		summary.NoChange(id, strings.Join(actions, " "))
	}
}

func firedAction(th Threshold, suppress []Threshold) string {
	action := "fired:" + string(th)
	if len(suppress) > 0 {
		names := make([]string, 0, len(suppress))
		for _, s := range suppress {
			names = append(names, string(s))
		}
		action += " suppressed:" + strings.Join(names, ",")
	}
	return action
}

// backfill sets the recipients from the active students of the task's class, once.
// It reports whether it wrote them.
func (sw *ReminderSweeper) backfill(ctx context.Context, t Task) (Task, bool, error) {
	recipients := make([]Recipient, 0)
	if t.Branch != "" && t.Semester > 0 {
		students, err := sw.users.QueryUsers(ctx, user.ActiveStudents(t.Branch, t.Semester), []core.DBOrdering{{Field: "created_at", Ascending: true}})
		if err != nil {
			return t, false, errors.Wrap(err, "querying students")
		}
		for _, s := range students {
			recipients = append(recipients, Recipient{StudentID: s.ID, Status: RecipientPending})
		}
	}

	if err := sw.repo.BackfillRecipients(ctx, t.ID, recipients); err != nil {
		if errors.Cause(err) != ErrConflict {
			return t, false, err
		}
		// set concurrently: use the stored ones
		stored, err := sw.repo.GetTask(ctx, t.ID)
		return stored, false, err
	}
	t.Recipients = recipients
	t.RecipientsSet = true
	return t, true, nil
}

func (sw *ReminderSweeper) fire(ctx context.Context, t Task, th Threshold, suppress []Threshold, now time.Time) (bool, error) {
	staffIDs := t.Staff()
	var staff []user.User
	if len(staffIDs) > 0 {
		var err error
		if staff, err = sw.users.QueryUsers(ctx, &user.QueryFilter{IDs: staffIDs}, nil); err != nil {
			return false, errors.Wrap(err, "querying staff")
		}
	}

	studentMsg, staffMsg := reminderMessages(t, th)
	batch := make([]notification.Notification, 0, len(t.Recipients)+len(staffIDs))
	for _, r := range studentRecipients(t, th) {
		batch = append(batch, newReminder(t, th, r.StudentID, studentMsg, now))
	}
	for _, id := range staffIDs {
		batch = append(batch, newReminder(t, th, id, staffMsg, now))
	}

	fired, err := sw.repo.FireReminder(ctx, t.ID, th, suppress, now, batch)
	if err != nil || !fired {
		return fired, err
	}
	sw.mailStaff(t, th, staff, staffMsg)
	return true, nil
}

// studentRecipients are the students reminded at th: everyone before the due date, those still pending once overdue.
func studentRecipients(t Task, th Threshold) []Recipient {
	if th == ThresholdOverdue {
		return t.Pending()
	}
	return t.Recipients
}

func (sw *ReminderSweeper) mailStaff(t Task, th Threshold, staff []user.User, msg message) {
	if sw.mailSvc == nil {
		return
	}
	messages := make([]*core.EmailMessage, 0, len(staff))
	for _, usr := range staff {
		if usr.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      msg.title,
			TemplateName: reminderTemplate,
			TemplateData: reminderMailData{Name: usr.Name, Message: msg.text, TaskID: t.ID},
			Tags:         map[string]string{"task_id": t.ID, "threshold": string(th)},
		})
	}
	if len(messages) > 0 {
		sw.mailSvc.SendMessages(messages...)
		sw.logger.Debug(fmt.Sprintf("task %s: %d reminder emails queued", t.ID, len(messages)))
	}
}

type message struct {
	title string
	text  string
}

func newReminder(t Task, th Threshold, userID string, msg message, now time.Time) notification.Notification {
	return notification.Notification{
		UserID:    userID,
		Kind:      notification.KindTaskReminder,
		TaskID:    t.ID,
		Threshold: string(th),
		Title:     msg.title,
		Message:   msg.text,
		CreatedAt: now,
	}
}

// reminderMessages returns the student and the staff messages of a threshold.
func reminderMessages(t Task, th Threshold) (message, message) {
	due := t.DueDate.UTC().Format(dueLayout)
	switch th {
	case ThresholdBefore3:
		return message{"Task due in 3 days", fmt.Sprintf("%q is due in 3 days (%s).", t.Title, due)},
			message{"Upcoming due date", fmt.Sprintf("%q is due in 3 days (%s).", t.Title, due)}
	case ThresholdBefore1:
		return message{"Task due within 24 hours", fmt.Sprintf("%q is due within 24 hours (%s).", t.Title, due)},
			message{"Task due tomorrow", fmt.Sprintf("%q is due tomorrow (%s).", t.Title, due)}
	default:
		return message{"Task overdue", fmt.Sprintf("%q is overdue. It was due on %s.", t.Title, due)},
			message{"Task overdue", fmt.Sprintf(
				"%q is overdue: %d of %d students have not submitted it yet.", t.Title, t.PendingCount(), len(t.Recipients),
			)}
	}
}
