package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
	"golang.org/x/crypto/bcrypt"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase creates the admin user when it does not exist yet
// (idempotent). Credentials come from ADMIN_EMAIL / ADMIN_PASSWORD with
// development defaults.
func (s *DatabaseSeeder) SeedDatabase() error {
	ctx := context.Background()

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		slog.Warn("ADMIN_PASSWORD not set, using default development password")
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if existing != nil {
		slog.Info("Admin user already exists, skipping seed", "email", email)
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		FullName: "Administrator",
		Role:     "admin",
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("Admin user seeded", "email", email)
	return nil
}
