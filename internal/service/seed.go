package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/diagnostic-login/internal/auth"
	"github.com/spec-kit/diagnostic-login/internal/domain"
	"github.com/spec-kit/diagnostic-login/internal/repository"
)

// SeedUser is one account in a seed fixture.
type SeedUser struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Email     string `yaml:"email"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	IsStaff   bool   `yaml:"is_staff"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// DemoUsers are the accounts created when seeding without a fixture file.
func DemoUsers() []SeedUser {
	return []SeedUser{
		{Username: "admin", Password: "admin123", Email: "admin@example.com", FirstName: "Admin", LastName: "User", IsStaff: true},
		{Username: "staff1", Password: "staff123", Email: "staff1@example.com", FirstName: "Staff", LastName: "One", IsStaff: true},
		{Username: "staff2", Password: "staff123", Email: "staff2@example.com", FirstName: "Staff", LastName: "Two", IsStaff: true},
		{Username: "customer1", Password: "customer123", Email: "customer1@example.com", FirstName: "John", LastName: "Doe"},
		{Username: "customer2", Password: "customer123", Email: "customer2@example.com", FirstName: "Jane", LastName: "Smith"},
		{Username: "customer3", Password: "customer123", Email: "customer3@example.com", FirstName: "Bob", LastName: "Johnson"},
	}
}

// LoadSeedUsers reads a YAML fixture of the form `users: [...]`.
func LoadSeedUsers(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, u := range file.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: username and password required", i)
		}
	}
	return file.Users, nil
}

// SeedUsers creates every user that does not exist yet and returns how many
// were created. Existing usernames are left untouched.
func SeedUsers(ctx context.Context, users repository.UserRepository, seeds []SeedUser, bcryptCost int, logger *zap.Logger) (int, error) {
	created := 0
	for _, seed := range seeds {
		if _, err := users.GetByUsername(ctx, seed.Username); err == nil {
			logger.Debug("seed user exists", zap.String("username", seed.Username))
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return created, err
		}

		hash, err := auth.HashPassword(seed.Password, bcryptCost)
		if err != nil {
			return created, err
		}
		user := &domain.User{
			Username:     seed.Username,
			FirstName:    seed.FirstName,
			LastName:     seed.LastName,
			Email:        seed.Email,
			PasswordHash: hash,
			IsStaff:      seed.IsStaff,
			IsActive:     true,
		}
		if err := users.Create(ctx, user); err != nil {
			return created, fmt.Errorf("seed %s: %w", seed.Username, err)
		}
		created++
		logger.Info("seeded user", zap.String("username", user.Username), zap.Bool("is_staff", user.IsStaff))
	}
	return created, nil
}
