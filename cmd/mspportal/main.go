package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/mspportal/internal/app"
	"github.com/dropDatabas3/mspportal/internal/config"
	"github.com/dropDatabas3/mspportal/internal/domain/repository"
	"github.com/dropDatabas3/mspportal/internal/identity"
	"github.com/dropDatabas3/mspportal/internal/observability/logger"
	"github.com/dropDatabas3/mspportal/internal/portal/session"
	"github.com/dropDatabas3/mspportal/internal/store"
	migrations "github.com/dropDatabas3/mspportal/migrations/postgres"
)

func main() {
	// .env es opcional
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:           "mspportal",
		Short:         "Portal MSP: resolución de tenants, acceso a módulos y sesiones de portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Archivo YAML de configuración (env CONFIG_PATH)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Version: cfg.App.Version})
		return cfg, nil
	}

	root.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		resolveCmd(load),
		evaluateCmd(load),
		tokenCmd(load),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_ = logger.Sync()
}

type loader func() (*config.Config, error)

// ─── serve ───

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.L().Warn("shutdown errors", logger.Err(err))
				}
			}()
			return a.Run(ctx)
		},
	}
}

// ─── migrate ───

func migrateCmd(load loader) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones del directorio (driver postgres)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, err := store.OpenAdapter(ctx, store.AdapterConfig{Name: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
			if err != nil {
				return err
			}
			defer conn.Close()

			mc, ok := conn.(store.MigratableConnection)
			if !ok {
				return fmt.Errorf("driver %q has no schema to migrate", cfg.Storage.Driver)
			}
			m := store.NewMigrator(migrations.DirectoryFS, migrations.DirectoryDir)

			if dryRun {
				pending, err := m.Pending(ctx, mc.MigrationExecutor())
				if err != nil {
					return err
				}
				fmt.Printf("pending: %v\n", pending)
				return nil
			}
			res, err := m.Run(ctx, mc.MigrationExecutor())
			if res != nil {
				fmt.Printf("applied=%v skipped=%v took=%s\n", res.Applied, res.Skipped, res.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Sólo listar migraciones pendientes")
	return cmd
}

// ─── resolve ───

func resolveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <host>",
		Short: "Resuelve el tenant de un hostname u origen (reporta errores del directorio)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := app.Core(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Resolver.ResolveByDomain(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res == nil {
				fmt.Println("no tenant")
				return nil
			}
			return printJSON(res)
		},
	}
}

// ─── evaluate ───

func evaluateCmd(load loader) *cobra.Command {
	var (
		userID  string
		email   string
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate <host>",
		Short: "Evalúa la sesión de portal de un principal en un origen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.Core(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var p *repository.Principal
			if userID != "" {
				p = &repository.Principal{ID: userID, Email: email, IsMSPAdmin: isAdmin}
			}
			provider := identity.NewStaticProvider(p)
			defer provider.Close()

			current, err := provider.Current(ctx)
			if err != nil && !errors.Is(err, identity.ErrUnauthenticated) {
				return err
			}
			s := session.New(a.Resolver, a.Policy, args[0], current)
			defer s.Close()
			if err := s.Refresh(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "refresh:", err)
			}
			return printJSON(s.State())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "ID del principal (vacío = anónimo)")
	cmd.Flags().StringVar(&email, "email", "", "Email del principal")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "El principal es MSP admin")
	return cmd
}

// ─── token ───

func tokenCmd(load loader) *cobra.Command {
	var (
		email   string
		isAdmin bool
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Firma un token de desarrollo con el secreto configurado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.App.Env == "prod" {
				return errors.New("token: not available with app_env=prod")
			}
			auth, err := identity.NewJWTAuthenticator(identity.JWTConfig{
				Secret: cfg.Auth.JWTSecret,
				Issuer: cfg.Auth.JWTIssuer,
			})
			if err != nil {
				return err
			}
			tok, err := auth.Sign(repository.Principal{ID: args[0], Email: email, IsMSPAdmin: isAdmin}, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email del principal")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Marcar como MSP admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Vigencia del token")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
