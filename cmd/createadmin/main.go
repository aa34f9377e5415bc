// Command createadmin provisions an administrator account directly in the
// user store. The public registration endpoint only accepts student and
// teacher roles, so the first admin has to be created out of band.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/karciss/red-social-backend/internal/auth"
	"github.com/karciss/red-social-backend/internal/config"
	"github.com/karciss/red-social-backend/internal/domain"
	"github.com/karciss/red-social-backend/internal/repository"
	"github.com/karciss/red-social-backend/internal/repository/postgres"
	"github.com/karciss/red-social-backend/internal/repository/supabase"
	"github.com/karciss/red-social-backend/pkg/database"
	apperrors "github.com/karciss/red-social-backend/pkg/errors"
	"github.com/karciss/red-social-backend/pkg/httpclient"
	"github.com/karciss/red-social-backend/pkg/logger"
)

func main() {
	var (
		email     = flag.String("email", "", "admin email address (required)")
		password  = flag.String("password", "", "admin password (required)")
		firstName = flag.String("first-name", "Admin", "admin first name")
		lastName  = flag.String("last-name", "User", "admin last name")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: createadmin -email <email> -password <password> [-first-name <name>] [-last-name <name>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("createadmin", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, cleanup, err := newUserRepository(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to user store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	if err := createAdmin(ctx, repo, *email, *password, *firstName, *lastName); err != nil {
		log.Error("failed to create admin", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("admin account created", slog.String("email", *email))
}

func newUserRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.UserRepository, func(), error) {
	if cfg.StoreBackend == config.StoreSupabase {
		client := httpclient.New(httpclient.DefaultConfig())
		cbClient := httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("supabase"), log)
		return supabase.NewUserStore(cbClient, cfg.SupabaseURL, cfg.SupabaseKey), func() {}, nil
	}

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return postgres.NewUserRepository(pool), pool.Close, nil
}

func createAdmin(ctx context.Context, repo repository.UserRepository, email, password, firstName, lastName string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			return fmt.Errorf("an account with email %s already exists", email)
		}
		return err
	}
	return nil
}
