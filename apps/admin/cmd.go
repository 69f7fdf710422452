package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf          *core.Config
	logger        core.Logger
	db            *sqlx.DB // nil for the memory engine
	accounts      *account.Service
	notifications *notification.Service
	mailer        core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                             - run a goose migration command (up, down, status, ...)")
	fmt.Println("  adduser -name NAME -email EMAIL [-role ROLE]       - create an account; the password will be prompted")
	fmt.Println("  resetweekly                                        - reset the weekly points of every account")
	fmt.Println("  digest                                             - email every account having unread notifications")
	fmt.Println("  token -email EMAIL                                 - print an API token for the account")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The account's display name.")
	addUserEmail := addUserCmd.String("email", "", "The account's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", account.RoleTeacher, "One of: student, teacher, helper.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenEmail := tokenCmd.String("email", "", "The account's email.")

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
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserRole, string(pwd))

	case "resetweekly":
		return cli.resetWeekly()

	case "digest":
		return cli.digest()

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenEmail == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenEmail)

	default:
		cli.printUsage()
		return errHelp
	}
}
