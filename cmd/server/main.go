// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	_ "github.com/tomtom215/newswire/docs" // swagger docs
	"github.com/tomtom215/newswire/internal/app"
	"github.com/tomtom215/newswire/internal/auth"
	"github.com/tomtom215/newswire/internal/config"
	"github.com/tomtom215/newswire/internal/logging"
)

func main() {
	var (
		configPath string
		adminToken string
	)
	pflag.StringVar(&configPath, "config", "", "path to a YAML config file (default: CONFIG_PATH or ./config.yaml)")
	pflag.StringVar(&adminToken, "issue-admin-token", "", "print an admin token for this subject and exit")
	pflag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadWithKoanf()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if adminToken != "" {
		os.Exit(issueAdminToken(cfg, adminToken))
	}

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Backend).
		Str("bus", cfg.Bus.Backend).
		Msg("Starting Newswire")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}

	runErr := a.Run(ctx)
	if err := a.Close(); err != nil {
		logging.Error().Err(err).Msg("Error during shutdown")
	}
	if runErr != nil {
		logging.Error().Err(runErr).Msg("Supervisor tree stopped with an error")
		os.Exit(1)
	}
	logging.Info().Msg("Newswire stopped")
}

func issueAdminToken(cfg *config.Config, subject string) int {
	if cfg.Security.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET must be set to issue a token the server will accept")
		return 2
	}
	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	token, err := tokens.Issue(subject, auth.RoleAdmin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}
