package coordinator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	validTill := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) time.Time { return validTill.Add(d) }

	tests := []struct {
		name      string
		validTill *time.Time
		graceDays int
		now       time.Time
		want      Status
	}{
		{name: "no expiry", validTill: nil, now: at(1000 * day), want: StatusActive},
		{name: "zero expiry", validTill: &time.Time{}, now: at(1000 * day), want: StatusActive},
		{name: "before expiry", validTill: &validTill, now: at(-time.Hour), want: StatusActive},
		{name: "at expiry", validTill: &validTill, now: validTill, want: StatusActive},
		{name: "just after expiry, no grace", validTill: &validTill, now: at(time.Nanosecond), want: StatusExpired},
		{name: "just after expiry, grace", validTill: &validTill, graceDays: 3, now: at(time.Nanosecond), want: StatusGrace},
		{name: "in grace", validTill: &validTill, graceDays: 3, now: at(day), want: StatusGrace},
		{name: "grace end", validTill: &validTill, graceDays: 3, now: at(3 * day), want: StatusGrace},
		{name: "after grace", validTill: &validTill, graceDays: 3, now: at(3*day + time.Nanosecond), want: StatusExpired},
		{name: "negative grace", validTill: &validTill, graceDays: -5, now: at(time.Second), want: StatusExpired},
		{name: "negative grace, before expiry", validTill: &validTill, graceDays: -5, now: at(-time.Second), want: StatusActive},
		{name: "huge grace", validTill: &validTill, graceDays: 1 << 40, now: at(50 * 365 * day), want: StatusGrace},
		{name: "other time zone", validTill: &validTill, now: validTill.In(time.FixedZone("WAT", 3600)), want: StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.validTill, tt.graceDays, tt.now))
		})
	}
}

func TestResolve_Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5000; i++ {
		validTill := base.Add(time.Duration(rnd.Int63n(int64(400 * day))))
		graceDays := rnd.Intn(30)
		now := base.Add(time.Duration(rnd.Int63n(int64(500 * day))))
		graceEnd := validTill.Add(time.Duration(graceDays) * day)

		got := Resolve(&validTill, graceDays, now)
		switch {
		case !now.After(validTill):
			require.Equal(t, StatusActive, got, "now=%v validTill=%v", now, validTill)
		case !now.After(graceEnd):
			require.Equal(t, StatusGrace, got, "now=%v validTill=%v grace=%d", now, validTill, graceDays)
		default:
			require.Equal(t, StatusExpired, got, "now=%v validTill=%v grace=%d", now, validTill, graceDays)
		}
	}
}

func TestParseValidTill(t *testing.T) {
	tests := []struct {
		raw  string
		want *time.Time
	}{
		{raw: "", want: nil},
		{raw: "   ", want: nil},
		{raw: "lol", want: nil},
		{raw: "2024-13-45", want: nil},
		{raw: "2024-03-10", want: timePtr(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))},
		{raw: "2024-03-10T08:30", want: timePtr(time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC))},
		{raw: " 2024-03-10T08:30:00+02:00 ", want: timePtr(time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC))},
		{raw: "2024-03-10T08:30:00.5Z", want: timePtr(time.Date(2024, 3, 10, 8, 30, 0, 5e8, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseValidTill(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v, want %v", got, tt.want)
		})
	}

	// unparseable expiries never expire
	assert.Equal(t, StatusActive, Resolve(ParseValidTill("someday"), 0, time.Now()))
}

func TestAssignment_Effective(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-day)

	// the cached status is ignored
	a := Assignment{ValidTill: &yesterday, GraceDays: 0, Status: StatusActive}
	assert.Equal(t, StatusExpired, a.Effective(now))

	a.GraceDays = 3
	assert.Equal(t, StatusGrace, a.Effective(now))
}

func timePtr(t time.Time) *time.Time { return &t }
