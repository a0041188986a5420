package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/task"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	sched := sweep.NewScheduler(logger, nil)
	sched.Register(coordinator.NewSweeper(usrRepo, logger), conf.Scheduler.CoordinatorInterval)
	sched.Register(task.NewReminderSweeper(sqlxrepos.NewTaskRepository(db), usrRepo, mailSvc, logger), conf.Scheduler.TaskReminderInterval)

	// start CLI
	cli := commandLine{
		conf:           conf,
		db:             db,
		out:            os.Stdout,
		usrSvc:         user.NewService(usrRepo, validate),
		coordinatorSvc: coordinator.NewService(usrRepo, validate),
		scheduler:      sched,
	}
	code := 0
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: " + err.Error())
		}
		code = 1
	}

	_ = db.Close()
	logger.Wait()
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
