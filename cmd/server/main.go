package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ledgerly/auth-service/auth"
	"github.com/ledgerly/auth-service/auth/challenge"
	"github.com/ledgerly/auth-service/email"
	"github.com/ledgerly/auth-service/internal/config"
	"github.com/ledgerly/auth-service/server"
	"github.com/ledgerly/auth-service/sessioncookie"
	"github.com/ledgerly/auth-service/token"
	"github.com/ledgerly/auth-service/token/boltstore"
	"github.com/ledgerly/auth-service/twofactor"
	twofactorfake "github.com/ledgerly/auth-service/twofactor/repofake"
	"github.com/ledgerly/auth-service/users/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("server error")
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

	_ = godotenv.Load()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	store, err := boltstore.Open(filepath.Join(c.GetDataFolder(), "tokens.db"))
	if err != nil {
		return fmt.Errorf("boltstore.Open: %w", err)
	}
	defer store.Close()

	authService, err := buildAuthService(c, store)
	if err != nil {
		return fmt.Errorf("buildAuthService: %w", err)
	}

	cookieCodec := sessioncookie.NewCodec(sessioncookie.WithTTL(c.GetSessionTTL()))

	srv, err := server.New(c, authService, cookieCodec)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildAuthService(c config.Config, store *boltstore.Store) (*auth.Service, error) {
	// User records live in memory until a database backend lands.
	// TODO swap in a persistent users.UserRepo.
	repos := auth.Repos{
		Users:              repofake.NewFakeUserRepo(),
		RefreshTokens:      store.RefreshTokens(),
		ResetTokens:        store.ResetTokens(),
		VerificationTokens: store.VerificationTokens(),
		BackupCodes:        twofactorfake.NewFakeBackupCodeRepo(),
	}

	signer := token.NewHMACSigner(c.GetJWTSecret())
	tokenManager := token.New(repos.RefreshTokens, signer,
		token.WithIssuer(c.GetTokenIssuer()),
		token.WithAudience(c.GetTokenAudience()),
		token.WithTokenExpiry(c.GetAccessTokenExpiry(), c.GetRefreshTokenExpiry()),
	)

	return auth.NewService(
		repos,
		tokenManager,
		buildEmailSender(c),
		twofactor.NewVerifier(c.GetTOTPIssuer()),
		challenge.NewInMemoryRepo(),
		auth.WithDebugTokens(c.GetDebugTokensEnabled()),
		auth.WithSingleUseTokenTTLs(c.GetResetTokenExpiry(), c.GetVerificationTokenExpiry()),
	)
}

func buildEmailSender(c config.Config) email.Sender {
	if c.GetSmtpAccount() == "" {
		log.Warn().Msg("no SMTP account configured, logging emails instead of sending")
		return email.LogSender{}
	}
	return email.NewSMTPSender(
		c.GetSmtpHost(),
		c.GetSmtpPort(),
		c.GetSmtpAccount(),
		c.GetSmtpPassword(),
		c.GetSmtpFrom(),
		c.GetBaseURL(),
	)
}

func setupLogging(c config.Config) {
	if c.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
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
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
