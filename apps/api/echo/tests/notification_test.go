package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func Test_notificationApi(t *testing.T) {
	db.Reset()
	now := time.Now().UTC()

	student := testutil.CreateUser(t, usrRepo, "Alice", "alice@test.cd", user.RoleStudent, "CSE", 3, true)
	other := testutil.CreateUser(t, usrRepo, "Bob", "bob@test.cd", user.RoleStudent, "CSE", 3, true)
	token := getToken(t, student)

	notifs, err := notifRepo.InsertNotifications(context.Background(), []notification.Notification{
		{UserID: student.ID, Kind: notification.KindTaskReminder, Title: "older", Message: "m", CreatedAt: now.Add(-time.Hour)},
		{UserID: student.ID, Kind: notification.KindTaskReminder, Title: "newer", Message: "m", CreatedAt: now},
		{UserID: other.ID, Kind: notification.KindTaskReminder, Title: "other", Message: "m", CreatedAt: now},
	})
	require.NoError(t, err)
	older, newer := notifs[0], notifs[1]
	newerRead := newer
	newerRead.Read = true
	olderRead := older
	olderRead.Read = true

	runHTTPTests(t, []httpTest{
		{name: "auth required", path: "/v1/notifications", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "list", path: "/v1/notifications", token: token, wantData: marchallList(t, newer, older)},
		{name: "unread", path: "/v1/notifications?unread=true", token: token, wantData: marchallList(t, newer, older)},
		{
			name: "mark one read", method: http.MethodPost, path: "/v1/notifications/read", token: token,
			body:     marchallObj(t, map[string]interface{}{"ids": []string{newer.ID, notifs[2].ID}}),
			wantData: []byte(`{"updated": 1}`),
		},
		{name: "unread after marking", path: "/v1/notifications?unread=true", token: token, wantData: marchallList(t, older)},
		{name: "list after marking", path: "/v1/notifications", token: token, wantData: marchallList(t, newerRead, older)},
		{
			name: "mark all read", method: http.MethodPost, path: "/v1/notifications/read", token: token,
			body: []byte(`{}`), wantData: []byte(`{"updated": 1}`),
		},
		{
			name: "mark all read (idempotent)", method: http.MethodPost, path: "/v1/notifications/read", token: token,
			body: []byte(`{}`), wantData: []byte(`{"updated": 0}`),
		},
		{name: "all read", path: "/v1/notifications", token: token, wantData: marchallList(t, newerRead, olderRead)},
		{name: "other user untouched", path: "/v1/notifications?unread=1", token: getToken(t, other), wantData: marchallList(t, notifs[2])},
	})
}
