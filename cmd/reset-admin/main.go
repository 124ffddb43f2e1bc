package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/repository"
	"github.com/noah-isme/admissions-api/internal/service"
	"github.com/noah-isme/admissions-api/pkg/config"
	"github.com/noah-isme/admissions-api/pkg/database"
	"github.com/noah-isme/admissions-api/pkg/logger"
)

const (
	defaultAdminEmail    = "admin@eteeap.com"
	defaultAdminPassword = "Admin123!"
)

var rootCmd = &cobra.Command{
	Use:   "reset-admin",
	Short: "Create or reset the administrator account.",
	Long: `reset-admin creates the administrator account when it is missing, or resets its
password and role when it exists. Values default to ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_NAME.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().String("email", "", "Administrator email (overrides ADMIN_EMAIL)")
	rootCmd.Flags().String("password", "", "Administrator password (overrides ADMIN_PASSWORD)")
	rootCmd.Flags().String("name", "", "Administrator display name (overrides ADMIN_NAME)")
	rootCmd.Flags().Bool("migrate", false, "Apply pending migrations before resetting")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return err
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return err
	}
	defer logr.Sync() //nolint:errcheck

	account := resolveAccount(cmd, cfg.Admin)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Error("database migration failed", zap.Error(err))
			return err
		}
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Error("failed to connect to postgres", zap.Error(err))
		return err
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	authSvc := service.NewAuthService(users, nil, nil, nil, nil, service.NewValidator(), logr, service.AuthConfig{})

	if err := authSvc.EnsureAdmin(ctx, account, true); err != nil {
		logr.Error("failed to reset admin", zap.String("email", account.Email), zap.Error(err))
		return err
	}

	logr.Info("admin account ready", zap.String("email", account.Email))
	return nil
}

// resolveAccount layers flags over config and falls back to the stock credentials.
func resolveAccount(cmd *cobra.Command, admin config.AdminConfig) service.AdminAccount {
	account := service.AdminAccount{Email: admin.Email, Password: admin.Password, Name: admin.Name}
	if v, _ := cmd.Flags().GetString("email"); v != "" {
		account.Email = v
	}
	if v, _ := cmd.Flags().GetString("password"); v != "" {
		account.Password = v
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		account.Name = v
	}
	if account.Email == "" {
		account.Email = defaultAdminEmail
	}
	if account.Password == "" {
		account.Password = defaultAdminPassword
	}
	return account
}
