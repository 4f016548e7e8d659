package main

import (
	"context"

	"github.com/escolabr/escola/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	return cli.idp.ResetSecret(context.Background(), core.CleanString(email, true /* lower */), pwd)
}
