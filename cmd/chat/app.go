package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/janhq/support-chat/internal/client"
	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/infrastructure/logger"
	"github.com/janhq/support-chat/internal/utils/httpclients"
)

// clientApp holds the collaborators every subcommand needs.
type clientApp struct {
	cfg     *config.ClientConfig
	log     zerolog.Logger
	session *client.Session
	store   *client.StoreClient
	auth    *client.TokenAuthenticator
	logFile *os.File
}

func newClientApp(cmd *cobra.Command) (*clientApp, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", envFile, err)
			}
		}
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.ServerURL = server
	}

	policy, err := client.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log, err := logger.NewWithWriter(logFile, cfg.LogLevel, "json")
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("configure logger: %w", err)
	}

	relay := client.NewRelayClient(httpclients.NewClient("relay", log), cfg.ServerURL, cfg.RelayPath)
	store := client.NewStoreClient(httpclients.NewClient("docstore", log), cfg.ServerURL, cfg.PublicAPIKey)

	var source client.TokenSource
	switch {
	case cfg.AuthToken != "":
		source = client.StaticTokenSource(cfg.AuthToken)
	case cfg.HasPasswordGrant():
		source = client.NewPasswordGrantSource(httpclients.NewClient("oidc", log), cfg.TokenURL, cfg.ClientID, cfg.Username, cfg.Password)
	}

	return &clientApp{
		cfg:     cfg,
		log:     log,
		session: client.NewSession(relay, store, client.WithFailurePolicy(policy), client.WithLogger(log)),
		store:   store,
		auth:    client.NewTokenAuthenticator(source, log),
		logFile: logFile,
	}, nil
}

// signIn signs in when credentials are configured. It reports whether a
// user is now signed in.
func (a *clientApp) signIn(ctx context.Context) bool {
	if err := a.auth.SignIn(ctx); err != nil {
		if !errors.Is(err, client.ErrNoCredentials) {
			a.log.Warn().Err(err).Msg("sign in")
		}
		return false
	}
	return true
}

func (a *clientApp) Close() {
	_ = a.logFile.Close()
}
