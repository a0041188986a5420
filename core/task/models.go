// Package task fires the due-date reminders of portal tasks.
package task

import (
	"strings"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "pending"
	RecipientSubmitted RecipientStatus = "submitted"
	RecipientCompleted RecipientStatus = "completed"
)

type Threshold string

const (
	ThresholdBefore3 Threshold = "before3"
	ThresholdBefore1 Threshold = "before1"
	ThresholdOverdue Threshold = "overdue"
)

// Thresholds in descending time remaining.
var Thresholds = []Threshold{ThresholdBefore3, ThresholdBefore1, ThresholdOverdue}

const (
	before3Window = 72 * time.Hour
	before1Window = 24 * time.Hour
)

// ThresholdFor returns the threshold crossed at now by a task due at due:
// (24h, 72h] before3, [0, 24h] before1, past due overdue. Nothing is crossed more than 72h ahead.
func ThresholdFor(due, now time.Time) (Threshold, bool) {
	left := due.Sub(now)
	switch {
	case left > before3Window:
		return "", false
	case left > before1Window:
		return ThresholdBefore3, true
	case left >= 0:
		return ThresholdBefore1, true
	default:
		return ThresholdOverdue, true
	}
}

// Superseded returns the thresholds preceding th.
func Superseded(th Threshold) []Threshold {
	for i, t := range Thresholds {
		if t == th {
			return append([]Threshold(nil), Thresholds[:i]...)
		}
	}
	return nil
}

type Recipient struct {
	StudentID   string          `json:"student_id"`
	Status      RecipientStatus `json:"status"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
}

func (r Recipient) IsPending() bool {
	return r.Status != RecipientSubmitted && r.Status != RecipientCompleted
}

// Reminders holds the "already notified" markers. A set marker is never cleared.
type Reminders struct {
	Before3    *time.Time  `json:"before3"`
	Before1    *time.Time  `json:"before1"`
	Overdue    *time.Time  `json:"overdue"`
	Suppressed []Threshold `json:"suppressed,omitempty"` // stamped without firing
}

func (r Reminders) Get(th Threshold) *time.Time {
	switch th {
	case ThresholdBefore3:
		return r.Before3
	case ThresholdBefore1:
		return r.Before1
	case ThresholdOverdue:
		return r.Overdue
	}
	return nil
}

func (r Reminders) IsSet(th Threshold) bool {
	return r.Get(th) != nil
}

// Set stamps th if unset and reports whether it did.
func (r *Reminders) Set(th Threshold, at time.Time) bool {
	if r.IsSet(th) {
		return false
	}
	switch th {
	case ThresholdBefore3:
		r.Before3 = &at
	case ThresholdBefore1:
		r.Before1 = &at
	case ThresholdOverdue:
		r.Overdue = &at
	default:
		return false
	}
	return true
}

func (r Reminders) IsSuppressed(th Threshold) bool {
	for _, s := range r.Suppressed {
		if s == th {
			return true
		}
	}
	return false
}

type Task struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Branch        string      `json:"branch"`
	Semester      int         `json:"semester"`
	CreatedBy     string      `json:"created_by"`
	HODID         string      `json:"hod_id,omitempty"`
	Teachers      []string    `json:"teachers"`
	DueDate       *time.Time  `json:"due_date"`
	Status        Status      `json:"status"`
	Recipients    []Recipient `json:"recipients"`
	RecipientsSet bool        `json:"recipients_set"`
	Reminders     Reminders   `json:"reminders"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC
}

// Staff returns the assigned teachers, the HOD and the creator, without blanks or duplicates.
func (t Task) Staff() []string {
	ids := make([]string, 0, len(t.Teachers)+2)
	seen := make(map[string]bool, len(t.Teachers)+2)
	for _, id := range append(append([]string{}, t.Teachers...), t.HODID, t.CreatedBy) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Pending returns the recipients who neither submitted nor completed the task.
func (t Task) Pending() []Recipient {
	var pending []Recipient
	for _, r := range t.Recipients {
		if r.IsPending() {
			pending = append(pending, r)
		}
	}
	return pending
}

func (t Task) PendingCount() int {
	return len(t.Pending())
}

func (t Task) IsDue() bool {
	return t.Status == StatusActive && t.DueDate != nil && !t.DueDate.IsZero()
}
