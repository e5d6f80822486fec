package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
	"trueque-market/internal/repository"
	"trueque-market/internal/utils"
)

// AuthService handles registration and login
type AuthService struct {
	repo *repository.Repository
}

// NewAuthService creates a new AuthService
func NewAuthService(repo *repository.Repository) *AuthService {
	return &AuthService{repo: repo}
}

// Register creates a new account. An empty nickname gets a generated one.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if existing, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperrors.Validation("email %s is already registered", req.Email)
	} else if err != nil && err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("database error: %w", err)
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		generated, err := utils.GenerateNickname()
		if err != nil {
			return nil, fmt.Errorf("failed to generate nickname: %w", err)
		}
		nickname = generated
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		Nickname:     nickname,
		PasswordHash: hash,
		City:         req.City,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("New user created: email=%s (ID: %d)", user.Email, user.ID)

	return user, nil
}

// Login verifies credentials and returns the matching user.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.New(apperrors.KindAuthorization, apperrors.CodeNotAuthorized, "invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !verifyPassword(req.Password, user.PasswordHash) {
		return nil, apperrors.New(apperrors.KindAuthorization, apperrors.CodeNotAuthorized, "invalid credentials")
	}

	log.Printf("User logged in: email=%s (ID: %d)", user.Email, user.ID)

	return user, nil
}

// hashPassword produces "salt$digest" with a random per-user salt.
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	digest := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(digest[:]), nil
}

func verifyPassword(password, stored string) bool {
	parts := strings.SplitN(stored, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	digest := sha256.Sum256(append(salt, []byte(password)...))
	return hmac.Equal(digest[:], want)
}
