package main

import (
	"fmt"
	"log"
	"os"

	"github.com/escolabr/escola/auth"
	dummyauth "github.com/escolabr/escola/auth/dummy"
	"github.com/escolabr/escola/core"
	"github.com/escolabr/escola/core/school"
	emailsvc "github.com/escolabr/escola/services/email"
	logsvc "github.com/escolabr/escola/services/logger"
	"github.com/escolabr/escola/store"
	dummystore "github.com/escolabr/escola/store/dummy"
	"github.com/escolabr/escola/supabase"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.Conf

	var st store.Client
	var idp auth.IdentityProvider
	if conf.Supabase.URL != "" {
		client := supabase.NewClient(conf)
		st, idp = client, supabase.NewProvider(conf, client)
	} else {
		st, idp = dummystore.Open(), dummyauth.Open()
	}

	reg := school.NewRegistry(st, idp, emailsvc.NewConsoleService(), logsvc.NewConsoleLogger(logger))

	// start CLI
	cli := commandLine{
		reg: reg,
		idp: idp,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
