package dig_container

import (
	"fmt"
	"io"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/task"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are backed by the configured database engine.
	Repositories struct {
		dig.Out
		DB            io.Closer
		Users         user.Repository
		Coordinators  coordinator.Repository
		Tasks         task.Repository
		Notifications notification.Repository
	}

	SchedulerParam struct {
		dig.In
		Conf         *core.Config
		Logger       core.Logger
		Coordinators coordinator.Repository
		Tasks        task.Repository
		Users        user.Repository
		MailSvc      core.EmailService
	}
)

func newRollbarLogger(conf *core.Config) *logsvc.RollbarLogger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(rLogger *logsvc.RollbarLogger) core.Logger {
	return rLogger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == database.EngineMemory {
		db, _ := dummydb.Open()
		usrRepo := dummydb.NewUserRepository(db)
		loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
		return Repositories{
			DB:            db,
			Users:         usrRepo,
			Coordinators:  usrRepo,
			Tasks:         dummydb.NewTaskRepository(db),
			Notifications: dummydb.NewNotificationRepository(db),
		}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	usrRepo := sqlxrepos.NewUserRepository(db)
	return Repositories{
		DB:            db,
		Users:         usrRepo,
		Coordinators:  usrRepo,
		Tasks:         sqlxrepos.NewTaskRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newScheduler(p SchedulerParam) *sweep.Scheduler {
	sched := sweep.NewScheduler(p.Logger, nil)
	sched.Register(coordinator.NewSweeper(p.Coordinators, p.Logger), p.Conf.Scheduler.CoordinatorInterval)
	sched.Register(task.NewReminderSweeper(p.Tasks, p.Users, p.MailSvc, p.Logger), p.Conf.Scheduler.TaskReminderInterval)
	return sched
}

func newServerDeps(
	conf *core.Config,
	logger core.Logger,
	translator ut.Translator,
	usrSvc *user.Service,
	coordinatorSvc *coordinator.Service,
	notifSvc *notification.Service,
	sched *sweep.Scheduler,
) *echoapi.ServerDeps {
	return &echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Translator:      translator,
		UserSvc:         usrSvc,
		CoordinatorSvc:  coordinatorSvc,
		NotificationSvc: notifSvc,
		Scheduler:       sched,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newRollbarLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(coordinator.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
