package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/models"
	"github.com/sylvan-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserAuthServiceTest(t *testing.T) (*UserAuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_auth_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	cfg := &config.Config{}
	cfg.UserJWT.SecretKey = "unit-test-secret"
	cfg.UserJWT.ExpireHours = 1
	return NewUserAuthService(cfg, repository.NewUserRepository(db)), db
}

func TestUserRegisterValidation(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)

	if _, _, _, err := svc.Register("not-an-email", "longenough123", "", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, _, _, err := svc.Register("short@example.com", "1234567", "", ""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	user, token, expiresAt, err := svc.Register(" Alice@Example.COM ", "longenough123", " Alice ", "en")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %s", user.Email)
	}
	if user.DisplayName != "Alice" {
		t.Fatalf("expected trimmed display name, got %q", user.DisplayName)
	}
	if user.Locale != "en" {
		t.Fatalf("expected locale en, got %s", user.Locale)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatal("expected a signed token with a future expiry")
	}

	if _, _, _, err := svc.Register("alice@example.com", "longenough123", "", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken on duplicate, got %v", err)
	}
}

func TestUserLogin(t *testing.T) {
	svc, db := setupUserAuthServiceTest(t)

	if _, _, _, err := svc.Register("bob@example.com", "longenough123", "Bob", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, _, err := svc.Login("bob@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, _, err := svc.Login("nobody@example.com", "whatever123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	user, token, _, err := svc.Login(" BOB@example.com ", "longenough123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected token on login")
	}
	if user.LastLoginAt == nil {
		t.Fatal("expected last login timestamp to be recorded")
	}

	// 禁用账号拒绝登录
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if _, _, _, err := svc.Login("bob@example.com", "longenough123"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}

func TestUserJWTRoundTrip(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)

	user := &models.User{ID: 42, Email: "claims@example.com", TokenVersion: 3}
	token, _, err := svc.GenerateUserJWT(user)
	if err != nil {
		t.Fatalf("generate jwt failed: %v", err)
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "claims@example.com" || claims.TokenVersion != 3 {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.ParseUserJWT(token + "tampered"); err == nil {
		t.Fatal("expected error for tampered token")
	}
}
