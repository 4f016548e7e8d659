package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	echoapi "github.com/escolabr/escola/apps/api/echo"
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

const shutdownTimeout = 20 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		rollbarLogger := logsvc.NewRollbarLogger(std, conf)
		rollbarLogger.Enable(true)
		logger = rollbarLogger
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	st, idp, err := setUpBackend(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up backend: %v", err), err)
	}

	reg := school.NewRegistry(st, idp, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Address:    conf.Server.Address(),
			Logger:     logger,
			Registry:   reg,
			Identity:   idp,
			Validate:   core.Validate,
			Translator: core.Translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpBackend wires the remote store and the identity provider. A configured
// Supabase project is authoritative; without one the API runs against
// in-memory fixtures with a seeded admin account for local development.
func setUpBackend(conf *core.Config, logger core.Logger) (store.Client, auth.IdentityProvider, error) {
	if conf.Supabase.URL != "" {
		client := supabase.NewClient(conf)
		return client, supabase.NewProvider(conf, client), nil
	}

	if !conf.Debug {
		return nil, nil, fmt.Errorf("supabase is not configured and ENV is %s", conf.Env)
	}

	st := dummystore.Open()
	idp := dummyauth.Open()

	pwd, err := school.GenerateTempPassword()
	if err != nil {
		return nil, nil, err
	}
	admin, err := idp.Seed(auth.Actor{Name: "Admin", Email: "admin@localhost", Role: auth.RoleAdmin}, pwd)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(fmt.Sprintf("dev admin seeded: %s / %s", admin.Email, pwd))

	return st, idp, nil
}
