package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/collipulli/helpdesk/internal/app"
	"github.com/collipulli/helpdesk/internal/config"
	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/observability"
	"github.com/collipulli/helpdesk/internal/persistence"
)

// opener assembles the service against configured infrastructure and
// returns a func releasing it.
type opener func(ctx context.Context) (*app.App, func(), error)

func main() {
	if err := newRootCmd(openConfigured, migrateConfigured).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open opener, migrate func(ctx context.Context, dir string) error) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "helpdesk-admin",
		Short:        "Out-of-band administration for the helpdesk",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(setRoleCmd(open))
	rootCmd.AddCommand(deleteUserCmd(open))
	rootCmd.AddCommand(migrateCmd(migrate))
	return rootCmd
}

func setRoleCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-role <email>",
		Short: "Change a user's role (patient or admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")

			ctx := cmd.Context()
			svc, done, err := open(ctx)
			if err != nil {
				return err
			}
			defer done()

			user, err := svc.Auth.SetRole(ctx, args[0], domain.Role(role))
			if err != nil {
				return fmt.Errorf("set role: %w", err)
			}
			printUser(cmd.OutOrStdout(), "updated", user)
			return nil
		},
	}
	cmd.Flags().String("role", string(domain.RoleAdmin), "Role to assign")
	return cmd
}

func deleteUserCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user <email>",
		Short: "Remove a user's profile; their tickets remain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, done, err := open(ctx)
			if err != nil {
				return err
			}
			defer done()

			user, err := svc.Profiles.DeleteByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			printUser(cmd.OutOrStdout(), "deleted", user)
			return nil
		},
	}
}

func migrateCmd(migrate func(ctx context.Context, dir string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if err := migrate(cmd.Context(), dir); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().String("dir", persistence.DefaultMigrationsDir, "Path to migrations directory")
	return cmd
}

func printUser(w io.Writer, verb string, user *domain.User) {
	fmt.Fprintf(w, "%s %s <%s> role=%s\n", verb, user.Name, user.Email, user.Role)
}

// openConfigured connects Postgres and Redis from the environment so that
// events reach running API instances through the Redis bridge.
func openConfigured(ctx context.Context) (*app.App, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if !pg.Enabled() {
		logger.Warn("no postgres DSN configured; changes only affect an in-memory store")
	}
	redis := persistence.NewRedis(cfg.Redis, logger)

	svc := app.New(app.Options{
		Config:   cfg,
		Logger:   logger,
		Postgres: pg,
		Redis:    redis,
	})
	return svc, func() {
		redis.Close()
		pg.Close()
		logger.Sync() //nolint:errcheck
	}, nil
}

func migrateConfigured(ctx context.Context, dir string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if !pg.Enabled() {
		return errors.New("POSTGRES_DSN is not set")
	}
	return persistence.RunMigrations(ctx, pg.PoolHandle(), dir, logger)
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
