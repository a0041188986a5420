package tests

import (
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/task"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/tests"
)

var (
	conf    *core.Config
	db      *dummydb.DB
	app     *Server
	usrRepo interface {
		user.Repository
		coordinator.Repository
	}
	taskRepo  task.Repository
	notifRepo notification.Repository
	sched     *sweep.Scheduler

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		AppName:   "Academia",
		SecretKey: "secret",
		TestMode:  true,
	}
	conf.Server.JWTExpirationDelta = time.Hour

	logger := testutil.NewLogger()

	// set up DB & repos
	db, _ = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	taskRepo = dummydb.NewTaskRepository(db)
	notifRepo = dummydb.NewNotificationRepository(db)

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	sched = sweep.NewScheduler(logger, nil)
	sched.Register(coordinator.NewSweeper(usrRepo, logger), time.Hour)
	sched.Register(task.NewReminderSweeper(taskRepo, usrRepo, mailSvc, logger), time.Hour)

	// set up server
	app = NewServer(&ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Translator:      translator,
		UserSvc:         user.NewService(usrRepo, validate),
		CoordinatorSvc:  coordinator.NewService(usrRepo, validate),
		NotificationSvc: notification.NewService(notifRepo),
		Scheduler:       sched,
	})

	// run tests
	code := m.Run()

	os.Exit(code)
}
