package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/tests"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:         "Academia",
		FrontendBaseURL: "http://portal.test",
		WorkDir:         core.Getwd(),
		TestMode:        true,
		SendgridApiKey:  "sg-key",
	}
}

func reminderMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Teacher One", Address: "t1@test.cd"}},
		Subject:      "Task overdue",
		TemplateName: "task_reminder",
		TemplateData: struct {
			Name    string
			Message string
			TaskID  string
		}{"Teacher One", "\"Thesis\" is overdue: 2 of 4 students have not submitted it yet.", "42"},
		Tags: map[string]string{"threshold": "overdue", "task_id": "42"},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)
	ResetSentMessages()

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(
		reminderMessage(),
		&core.EmailMessage{Subject: "nobody"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@test.cd"}}, Subject: "plain", BodyStr: "hi"},
	)

	sent := GetSentMessages()
	require.Len(t, sent, 2, "messages without recipients are dropped")
	assert.Contains(t, sent[0].TextContent, "Hello Teacher One")
	assert.Contains(t, sent[0].TextContent, "2 of 4 students")
	assert.Contains(t, sent[0].TextContent, "http://portal.test/tasks/42")
	assert.Contains(t, sent[0].TextContent, "--\nAcademia\n")
	assert.Contains(t, sent[0].HTMLContent, `href="http://portal.test/tasks/42"`)
	assert.Equal(t, "hi", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)
	assert.Empty(t, logger.Entries("info"), "output disabled")
}

func TestConsoleService_Send(t *testing.T) {
	conf := testConfig()
	logger := testutil.NewLogger()
	svc := consoleService{defaultFromEmail: conf.DefaultFromEmail(), subjPrefix: "[Academia] ", logger: logger}

	svc.send(core.EmailMessage{
		To:          []mail.Address{{Address: "a@test.cd"}},
		Subject:     "Hello",
		TextContent: "text body",
		HTMLContent: "<p>html body</p>",
		Tags:        map[string]string{"threshold": "before1", "task_id": "42"},
	})
	entries := logger.Entries("info")
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Msg, "Subject: [Academia] Hello")
	assert.Contains(t, entries[0].Msg, "To: <a@test.cd>")
	assert.Contains(t, entries[0].Msg, "X-Tag-task_id: 42\r\nX-Tag-threshold: before1\r\n")
	assert.Contains(t, entries[0].Msg, "text body")
	assert.Contains(t, entries[0].Msg, "<p>html body</p>")
}

func TestSendgridService(t *testing.T) {
	conf := testConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)
	svc := NewSendgridService(conf, logger)

	msg := reminderMessage()
	require.NoError(t, msg.Render())

	req := svc.request(*msg)
	assert.Equal(t, rest.Method(http.MethodPost), req.Method)
	assert.Equal(t, "Bearer sg-key", req.Headers["Authorization"])

	var body struct {
		From struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
			CustomArgs map[string]string `json:"custom_args"`
		} `json:"personalizations"`
		Categories []string `json:"categories"`
		Content    []struct {
			Type string `json:"type"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "Academia", body.From.Name)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Academia] Task overdue", body.Personalizations[0].Subject)
	assert.Equal(t, "t1@test.cd", body.Personalizations[0].To[0].Email)
	assert.Equal(t, map[string]string{"task_id": "42", "threshold": "overdue"}, body.Personalizations[0].CustomArgs)
	assert.Equal(t, []string{"task_reminder"}, body.Categories)
	require.Len(t, body.Content, 2)
	assert.Equal(t, "text/plain", body.Content[0].Type)
	assert.Equal(t, "text/html", body.Content[1].Type)

	t.Run("send errors are logged", func(t *testing.T) {
		defer func(f func(rest.Request) (*rest.Response, error)) { sendgridAPIFunc = f }(sendgridAPIFunc)

		var mu sync.Mutex
		calls := 0
		sendgridAPIFunc = func(rest.Request) (*rest.Response, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return nil, errors.New("network down")
			}
			return &rest.Response{StatusCode: http.StatusBadRequest, Body: "bad from"}, nil
		}

		svc.send(*msg)
		svc.send(*msg)
		assert.True(t, logger.Contains("error", "sending email: network down"))
		assert.True(t, logger.Contains("error", "status: 400 - Body: bad from"))
	})
}
