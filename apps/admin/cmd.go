package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/attendance"
	"github.com/trezcool/comedor/core/promotion"
	"github.com/trezcool/comedor/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db            *sqlx.DB
	out           io.Writer
	usrRepo       user.Repository
	attendanceSvc attendance.Service
	promotionSvc  promotion.Service
	conf          *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  adduser -username USERNAME [-email EMAIL] [-name NAME] [-roles ROLE,ROLE] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL [-activate] - reset a staff password, optionally reactivating the account")
	fmt.Println("  mailsummary [-date YYYY-MM-DD] - mail the day's cafeteria summary to the kitchen")
	fmt.Println("  promote [-confirm] [-repeat ID,ID] - promote every student to their next course")
	fmt.Println("  undopromotion - revert the latest promotion")
}

// promptPassword reads a password without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRoles := addUserCmd.String("roles", "", "Comma separated roles, e.g. admin:,teacher:")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")
	resetPasswordActivate := resetPasswordCmd.Bool("activate", false, "Also reactivate a deactivated account.")

	mailSummaryCmd := flag.NewFlagSet("mailsummary", flag.ContinueOnError)
	mailSummaryDate := mailSummaryCmd.String("date", "", "The day to summarize, YYYY-MM-DD. Defaults to today.")

	promoteCmd := flag.NewFlagSet("promote", flag.ContinueOnError)
	promoteConfirm := promoteCmd.Bool("confirm", false, "Apply the promotion. Without it, the plan is only printed.")
	promoteRepeat := promoteCmd.String("repeat", "", "Comma separated ids of the students who repeat their course.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, *addUserName, pwd, core.SplitClean(*addUserRoles))

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd, *resetPasswordActivate)

	case "mailsummary":
		if err := mailSummaryCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.mailSummary(*mailSummaryDate)

	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.promote(*promoteConfirm, core.SplitClean(*promoteRepeat))

	case "undopromotion":
		return cli.undoPromotion()

	default:
		cli.printUsage()
		return errHelp
	}
}
