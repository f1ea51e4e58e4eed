package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/config"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuth(t *testing.T) (*AuthHandler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	db.AutoMigrate(&models.AdminUser{})

	handler := NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	created, err := handler.EnsureAdmin(context.Background(), "admin", "admin@tours.example", "s3cret-pass", models.RoleAdmin)
	if err != nil || !created {
		t.Fatalf("failed to create admin: created=%v err=%v", created, err)
	}
	return handler, db
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	handler, db := setupAuth(t)

	created, err := handler.EnsureAdmin(context.Background(), "admin", "other@tours.example", "changed", models.RoleManager)
	if err != nil {
		t.Fatalf("EnsureAdmin returned error: %v", err)
	}
	if created {
		t.Error("expected existing admin to be left alone")
	}

	var count int64
	db.Model(&models.AdminUser{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 admin, got %d", count)
	}
}

func TestLogin(t *testing.T) {
	handler, db := setupAuth(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		token, user, err := handler.Login(ctx, "admin", "s3cret-pass")
		if err != nil {
			t.Fatalf("Login returned error: %v", err)
		}
		if token == "" {
			t.Fatal("expected token")
		}
		if user.LastLogin == nil {
			t.Error("expected last_login to be set on returned user")
		}

		var stored models.AdminUser
		db.First(&stored, user.ID)
		if stored.LastLogin == nil {
			t.Error("expected last_login to be persisted")
		}

		verified, err := handler.Verify(ctx, token)
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if verified.Username != "admin" {
			t.Errorf("expected admin, got %s", verified.Username)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		if _, _, err := handler.Login(ctx, "admin", "nope"); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		if _, _, err := handler.Login(ctx, "ghost", "s3cret-pass"); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestLogin_Lockout(t *testing.T) {
	handler, _ := setupAuth(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return now }

	for i := 0; i < MaxFailedAttempts; i++ {
		if _, _, err := handler.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("attempt %d: expected ErrUnauthorized, got %v", i+1, err)
		}
	}

	if _, _, err := handler.Login(ctx, "admin", "s3cret-pass"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked with correct password during lockout, got %v", err)
	}

	now = now.Add(LockDuration + time.Second)
	if _, _, err := handler.Login(ctx, "admin", "s3cret-pass"); err != nil {
		t.Fatalf("expected login after lockout expiry, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	handler, db := setupAuth(t)
	ctx := context.Background()

	var admin models.AdminUser
	db.Where("username = ?", "admin").First(&admin)

	t.Run("Expired", func(t *testing.T) {
		token, _ := handler.GenerateToken(&admin)
		later := handler.now
		handler.now = func() time.Time { return time.Now().Add(TokenDuration + time.Minute) }
		defer func() { handler.now = later }()

		if _, err := handler.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		claims := Claims{
			UserID: admin.ID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		if _, err := handler.Verify(ctx, forged); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for forged token, got %v", err)
		}
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		claims := Claims{UserID: admin.ID}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if _, err := handler.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken without exp, got %v", err)
		}
	})

	t.Run("AdminRemoved", func(t *testing.T) {
		token, _ := handler.GenerateToken(&admin)
		db.Delete(&models.AdminUser{}, admin.ID)
		if _, err := handler.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for removed admin, got %v", err)
		}
	})
}

func TestHandleMe(t *testing.T) {
	handler, db := setupAuth(t)

	var admin models.AdminUser
	db.Where("username = ?", "admin").First(&admin)

	t.Run("Authenticated", func(t *testing.T) {
		token, _ := handler.GenerateToken(&admin)
		resp, err := handler.HandleMe(context.Background(), &AuthInput{Authorization: "Bearer " + token})
		if err != nil {
			t.Fatalf("HandleMe returned error: %v", err)
		}
		if resp.Body.Username != admin.Username {
			t.Errorf("expected username %s, got %s", admin.Username, resp.Body.Username)
		}
		if resp.Body.Role != models.RoleAdmin {
			t.Errorf("expected role admin, got %s", resp.Body.Role)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		if _, err := handler.HandleMe(context.Background(), &AuthInput{}); err == nil {
			t.Fatal("expected error for unauthenticated request, got nil")
		}
	})
}

func TestHandleLogin(t *testing.T) {
	handler, _ := setupAuth(t)

	input := &LoginInput{}
	input.Body.Username = "admin"
	input.Body.Password = "s3cret-pass"
	resp, err := handler.HandleLogin(context.Background(), input)
	if err != nil {
		t.Fatalf("HandleLogin returned error: %v", err)
	}
	if !resp.Body.Success || resp.Body.Token == "" || resp.Body.User == nil {
		t.Errorf("unexpected login response: %+v", resp.Body)
	}

	input.Body.Password = ""
	if _, err := handler.HandleLogin(context.Background(), input); err == nil {
		t.Error("expected error for missing password")
	}
}
