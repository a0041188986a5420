package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coordinator"
	"github.com/trezcool/academia/core/sweep"
	"github.com/trezcool/academia/core/user"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf           *core.Config
	db             *sqlx.DB
	out            io.Writer
	usrSvc         *user.Service
	coordinatorSvc *coordinator.Service
	scheduler      *sweep.Scheduler
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  adduser -name NAME -role ROLE [-email EMAIL] [-branch BRANCH -semester N] - create a user")
	fmt.Println("  assign -user ID [-role BASE_ROLE] [-until DATE] [-grace DAYS] - grant the coordinator role")
	fmt.Println("  revoke -user ID - demote a coordinator to their base role")
	fmt.Println("  sweep [-name JOB] - run one or every sweep job now")
	fmt.Println("  token -user ID - issue an API token for a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "", "One of student, teacher, hod, admin.")
	addUserBranch := addUserCmd.String("branch", "", "The student's branch.")
	addUserSemester := addUserCmd.Int("semester", 0, "The student's semester.")

	assignCmd := flag.NewFlagSet("assign", flag.ContinueOnError)
	assignUser := assignCmd.String("user", "", "The user's ID.")
	assignRole := assignCmd.String("role", "", "The base role the user goes back to. Defaults to their current role.")
	assignUntil := assignCmd.String("until", "", "The expiry, e.g. 2024-06-30. Empty never expires.")
	assignGrace := assignCmd.Int("grace", 0, "The grace period in days.")

	revokeCmd := flag.NewFlagSet("revoke", flag.ContinueOnError)
	revokeUser := revokeCmd.String("user", "", "The coordinator's ID.")

	sweepCmd := flag.NewFlagSet("sweep", flag.ContinueOnError)
	sweepName := sweepCmd.String("name", "", "The job to run. Empty runs every job.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenUser := tokenCmd.String("user", "", "The user's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewUser{
			Name:     *addUserName,
			Email:    *addUserEmail,
			Role:     *addUserRole,
			Branch:   *addUserBranch,
			Semester: *addUserSemester,
		})
	case "assign":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignUser == "" {
			assignCmd.Usage()
			return errHelp
		}
		return cli.assign(coordinator.NewAssignment{
			UserID:    *assignUser,
			BaseRole:  *assignRole,
			ValidTill: *assignUntil,
			GraceDays: *assignGrace,
		})
	case "revoke":
		if err := revokeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *revokeUser == "" {
			revokeCmd.Usage()
			return errHelp
		}
		return cli.revoke(*revokeUser)
	case "sweep":
		if err := sweepCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.sweep(*sweepName)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenUser)
	default:
		cli.printUsage()
		return errHelp
	}
}

// print writes v as JSON, indented when the output is a terminal.
func (cli *commandLine) print(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	if f, ok := cli.out.(*os.File); ok && isTerminalFunc(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
