package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/escolabr/escola/auth"
	"github.com/escolabr/escola/core/school"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	reg *school.Registry
	idp auth.IdentityProvider
	db  *sqlx.DB // opened on demand by migratedb
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migratedb COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  addteacher -name NAME -email EMAIL [-phone PHONE] [-subjects ID,ID,...] - create a teacher account")
	fmt.Println("  resetpassword -email EMAIL - reset a teacher's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ExitOnError)
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email. A temporary password is generated and printed.")
	addTeacherPhone := addTeacherCmd.String("phone", "", "The teacher's phone number.")
	addTeacherSubjects := addTeacherCmd.String("subjects", "", "Comma-separated subject ids to assign to the teacher.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The teacher's email. The password will be prompted next.")

	switch args[1] {
	case "migratedb":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherName == "" || *addTeacherEmail == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		var subjects []string
		if *addTeacherSubjects != "" {
			subjects = strings.Split(*addTeacherSubjects, ",")
		}
		return cli.addTeacher(*addTeacherName, *addTeacherEmail, *addTeacherPhone, subjects)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
