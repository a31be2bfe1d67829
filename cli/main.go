package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/adonese/signup/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logrusLogger = logrus.New()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrusLogger.WithError(err).Fatal("signup exited")
	}
}

func newRootCmd() *cobra.Command {
	var configPath, secretsPath string

	load := func() (config.Config, error) {
		path := configPath
		if path == "" {
			path = config.FirstExistingPath("config.yaml", "../config.yaml")
		}
		secrets := secretsPath
		if secrets == "" {
			secrets = config.FirstExistingPath("secrets.yaml", "../secrets.yaml")
		}
		cfg, err := config.Load(path, secrets)
		if err != nil {
			return cfg, err
		}
		configureLogger(cfg)
		if path != "" {
			logrusLogger.WithField("path", path).Info("loaded config")
		}
		return cfg, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registration pages and API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the local backend database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := openLocalDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			logrusLogger.WithField("driver", db.Driver).Info("migrations applied")
			return nil
		},
	}

	root := &cobra.Command{
		Use:           "signup",
		Short:         "User registration service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&secretsPath, "secrets", "", "path to secrets.yaml")
	root.AddCommand(serveCmd, migrateCmd)
	return root
}
