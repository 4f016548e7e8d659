package main

import (
	"context"
	"fmt"

	"github.com/escolabr/escola/core/school"
)

// addTeacher provisions the identity and profile and prints the generated
// temporary password; it is shown once and never stored.
func (cli *commandLine) addTeacher(name, email, phone string, subjects []string) error {
	data := school.NewTeacher{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Subjects: subjects,
	}
	if err := data.Validate(); err != nil {
		return err
	}

	tch, tempPwd, err := cli.reg.AddTeacher(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Printf("teacher created: %s <%s>\ntemporary password: %s\n", tch.Name, tch.Email, tempPwd)
	return nil
}
