package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/nexahq/nexa-auth/auth"
	"github.com/nexahq/nexa-auth/captcha"
	"github.com/nexahq/nexa-auth/identity"
	"github.com/nexahq/nexa-auth/internal/config"
	"github.com/nexahq/nexa-auth/lockout"
	"github.com/nexahq/nexa-auth/otp"
	"github.com/nexahq/nexa-auth/rbac"
	"github.com/nexahq/nexa-auth/server"
	"github.com/nexahq/nexa-auth/sessions"
	"github.com/nexahq/nexa-auth/sessions/postgres"
	fakesessionstore "github.com/nexahq/nexa-auth/sessions/repofakes"
	"github.com/nexahq/nexa-auth/token"
	fakeuserrepo "github.com/nexahq/nexa-auth/users/repofake"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c)
	displayAppname(c.GetAppName())

	httpHandler, cleanup, err := buildServer(c)
	if err != nil {
		return err
	}
	defer cleanup()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: httpHandler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildServer wires the store, token, guard, captcha, otp and identity
// components into the HTTP surface.
func buildServer(c config.Config) (http.Handler, func(), error) {
	cleanup := func() {}

	var store sessions.Store
	if connString := c.GetDatabaseURL(); connString != "" {
		pgStore, err := postgres.Connect(context.Background(), connString)
		if err != nil {
			return nil, cleanup, errors.Wrap(err, "[buildServer] postgres.Connect")
		}
		cleanup = pgStore.Close
		store = pgStore
	} else {
		if c.GetEnv() != "DEV" {
			return nil, cleanup, errors.New("[buildServer] DATABASE_URL is required outside DEV")
		}
		log.Warn().Msg("no DATABASE_URL set, using in-memory session store")
		store = fakesessionstore.NewFakeSessionStore()
	}
	// User records live with the external user service; the in-memory repo
	// stands in for it until that integration lands.
	userRepo := fakeuserrepo.NewFakeUserRepo()

	signer, err := token.NewHMACSigner(c.GetSigningSecret())
	if err != nil {
		return nil, cleanup, errors.Wrap(err, "[buildServer] NewHMACSigner")
	}

	tokenService, err := token.NewService(store, signer,
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()))
	if err != nil {
		return nil, cleanup, errors.Wrap(err, "[buildServer] token.NewService")
	}

	guard := lockout.NewGuard(lockout.NewInMemoryCounterStore(),
		lockout.WithLimits(c.GetMaxLoginFailures(), c.GetFailureWindow(), c.GetLockoutDuration()))

	gate, err := captcha.NewGate(c.GetCaptchaProvider(), c.GetCaptchaSecret(), c.GetCaptchaMinScore())
	if err != nil {
		return nil, cleanup, errors.Wrap(err, "[buildServer] captcha.NewGate")
	}

	codes := otp.NewVerifier(otp.NewInMemoryCodeStore())

	authOptions := []auth.ServiceOption{}
	resolvers := identity.Chain{identity.NewTokenResolver(tokenService)}
	if issuer := c.GetExternalIssuer(); issuer != "" {
		external, err := identity.NewOIDCResolver(context.Background(), issuer, c.GetExternalAudience())
		if err != nil {
			return nil, cleanup, errors.Wrap(err, "[buildServer] identity.NewOIDCResolver")
		}
		resolvers = append(resolvers, external)
		authOptions = append(authOptions, auth.WithExternalResolver(external))
	}

	authService, err := auth.NewService(
		auth.Repos{Users: userRepo, Store: store},
		tokenService, guard, gate, codes, authOptions...)
	if err != nil {
		return nil, cleanup, errors.Wrap(err, "[buildServer] auth.NewService")
	}

	var strategy server.AuthStrategy = server.NewTokenStrategy(resolvers)
	if c.GetDevBypassEnabled() {
		log.Warn().Msg("development auth bypass enabled")
		strategy = server.NewDevBypassStrategy(strategy)
	}

	roles := rbac.NewResolver(c.GetAdminIDs(), c.GetAdminEmails(), c.GetModeratorEmails())

	httpServer, err := server.New(c, authService, strategy, roles)
	if err != nil {
		return nil, cleanup, errors.Wrap(err, "[buildServer] server.New")
	}
	return httpServer, cleanup, nil
}

func configureLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
