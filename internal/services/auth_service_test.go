package services

import (
	"context"
	"testing"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
	"trueque-market/internal/repository"
)

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuthService(repository.NewRepository(db))
	ctx := context.Background()

	user, err := service.Register(ctx, &models.RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
		Nickname: "alice",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password must not be stored in the clear")
	}

	// Duplicate email is refused.
	if _, err := service.Register(ctx, &models.RegisterRequest{
		Email:    "alice@example.com",
		Password: "whatever",
	}); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Errorf("expected ValidationError for duplicate email, got %v", err)
	}

	logged, err := service.Login(ctx, &models.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, logged.ID)
	}

	if _, err := service.Login(ctx, &models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	}); !apperrors.Is(err, apperrors.CodeNotAuthorized) {
		t.Errorf("expected NotAuthorized for bad password, got %v", err)
	}
}

func TestRegisterGeneratesNickname(t *testing.T) {
	db := setupTestDB(t)
	service := NewAuthService(repository.NewRepository(db))

	user, err := service.Register(context.Background(), &models.RegisterRequest{
		Email:    "anon@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Nickname == "" {
		t.Error("expected a generated nickname")
	}
}
