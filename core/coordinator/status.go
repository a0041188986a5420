// Package coordinator manages temporary coordinator role grants:
// their expiry resolution, the periodic sweep demoting expired grants and the admin actions on them.
package coordinator

import (
	"strings"
	"time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusGrace   Status = "grace"
	StatusExpired Status = "expired"
)

const (
	day          = 24 * time.Hour
	maxGraceDays = 100 * 365
)

// validTillLayouts are the accepted textual forms of an expiry.
var validTillLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// Assignment is a temporary coordinator grant held by a user.
type Assignment struct {
	BaseRole   string     `json:"base_role"`
	ValidTill  *time.Time `json:"valid_till"`
	GraceDays  int        `json:"grace_days"`
	Status     Status     `json:"status"` // cached; may be stale between sweeps
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
	AssignedBy string     `json:"assigned_by,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Effective recomputes the status from the source fields.
// Authorization decisions must rely on it rather than on the cached Status.
func (a Assignment) Effective(now time.Time) Status {
	return Resolve(a.ValidTill, a.GraceDays, now)
}

// Resolve maps an expiry and a grace period to a Status at instant now.
// A missing expiry never expires. A negative graceDays counts as no grace.
func Resolve(validTill *time.Time, graceDays int, now time.Time) Status {
	if validTill == nil || validTill.IsZero() {
		return StatusActive
	}
	if !now.After(*validTill) {
		return StatusActive
	}
	if graceDays < 0 {
		graceDays = 0
	}
	if graceDays > maxGraceDays {
		// past the Duration range; such a window never closes
		return StatusGrace
	}
	if !now.After(validTill.Add(time.Duration(graceDays) * day)) {
		return StatusGrace
	}
	return StatusExpired
}

// ParseValidTill parses a textual expiry (RFC 3339, "2006-01-02T15:04" or "2006-01-02", UTC if no offset).
// It returns nil for blank or unparseable input, which Resolve treats as no expiry.
func ParseValidTill(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range validTillLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
