package main

import (
	"github.com/trezcool/goose"

	"github.com/escolabr/escola/core"
	"github.com/escolabr/escola/fs"
	pgstore "github.com/escolabr/escola/store/postgres"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		if err := pgstore.CreateIfNotExist(core.Conf); err != nil {
			return err
		}
		db, err := pgstore.Open(core.Conf)
		if err != nil {
			return err
		}
		cli.db = db
	}

	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db.DB, appfs.FS, "migrations", arguments...)
}
