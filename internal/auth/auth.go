package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/config"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	TokenDuration     = 24 * time.Hour
	MaxFailedAttempts = 5
	LockDuration      = 15 * time.Minute
)

var (
	ErrUnauthorized = errors.New("invalid username or password")
	ErrLocked       = errors.New("account temporarily locked")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
	now func() time.Time
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, now: time.Now}
}

// Claims identify the admin a token was issued to.
type Claims struct {
	UserID   uint             `json:"userId"`
	Username string           `json:"username"`
	Role     models.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *AuthHandler) GenerateToken(user *models.AdminUser) (string, error) {
	issued := h.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(TokenDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// Verify checks signature and expiry, then loads the admin the token names.
func (h *AuthHandler) Verify(ctx context.Context, tokenString string) (*models.AdminUser, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	var user models.AdminUser
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load admin %d: %w", claims.UserID, err)
	}
	return &user, nil
}

// Login checks the password and, on success, stamps last_login and issues a token.
func (h *AuthHandler) Login(ctx context.Context, username, password string) (string, *models.AdminUser, error) {
	db := h.db.WithContext(ctx)

	var user models.AdminUser
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrUnauthorized
		}
		return "", nil, fmt.Errorf("load admin %q: %w", username, err)
	}

	now := h.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return "", nil, ErrLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		attempts := user.FailedAttempts + 1
		updates := map[string]interface{}{"failed_attempts": attempts}
		if attempts >= MaxFailedAttempts {
			updates["failed_attempts"] = 0
			updates["locked_until"] = now.Add(LockDuration)
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return "", nil, fmt.Errorf("record failed login: %w", err)
		}
		return "", nil, ErrUnauthorized
	}

	updates := map[string]interface{}{"last_login": now, "failed_attempts": 0, "locked_until": nil}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return "", nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now
	user.FailedAttempts = 0
	user.LockedUntil = nil

	token, err := h.GenerateToken(&user)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, &user, nil
}

// EnsureAdmin creates the bootstrap admin when no admin with that username exists.
func (h *AuthHandler) EnsureAdmin(ctx context.Context, username, email, password string, role models.AdminRole) (bool, error) {
	db := h.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.AdminUser{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if email == "" {
		email = username + "@localhost"
	}
	user := models.AdminUser{Username: username, Email: email, PasswordHash: hash, Role: role}
	if err := db.Create(&user).Error; err != nil {
		return false, fmt.Errorf("create admin %q: %w", username, err)
	}
	return true, nil
}

// AuthInput carries the bearer token of admin-only operations.
type AuthInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token from /admin/login"`
}

func bearerToken(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// Authorize resolves the admin behind an Authorization header for huma operations.
func (h *AuthHandler) Authorize(ctx context.Context, header string) (*models.AdminUser, error) {
	token := bearerToken(header)
	if token == "" {
		return nil, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	user, err := h.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, huma.Error401Unauthorized("Unauthorized: Invalid token")
		}
		return nil, huma.Error500InternalServerError("Failed to verify token")
	}
	return user, nil
}

type LoginInput struct {
	Body struct {
		Username string `json:"username,omitempty" required:"false"`
		Password string `json:"password,omitempty" required:"false"`
	}
}

type LoginOutput struct {
	Body struct {
		Success bool              `json:"success"`
		Token   string            `json:"token"`
		User    *models.AdminUser `json:"user"`
	}
}

func (h *AuthHandler) HandleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	if strings.TrimSpace(input.Body.Username) == "" || input.Body.Password == "" {
		return nil, huma.Error400BadRequest("Username and password are required")
	}

	token, user, err := h.Login(ctx, input.Body.Username, input.Body.Password)
	switch {
	case errors.Is(err, ErrLocked):
		return nil, huma.Error401Unauthorized("Account locked after too many failed attempts, try again later")
	case errors.Is(err, ErrUnauthorized):
		return nil, huma.Error401Unauthorized("Invalid username or password")
	case err != nil:
		return nil, huma.Error500InternalServerError("Login failed")
	}

	res := &LoginOutput{}
	res.Body.Success = true
	res.Body.Token = token
	res.Body.User = user
	return res, nil
}

type MeOutput struct {
	Body struct {
		ID        uint             `json:"id"`
		Username  string           `json:"username"`
		Email     string           `json:"email"`
		Role      models.AdminRole `json:"role"`
		LastLogin *time.Time       `json:"lastLogin"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	user, err := h.Authorize(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	res := &MeOutput{}
	res.Body.ID = user.ID
	res.Body.Username = user.Username
	res.Body.Email = user.Email
	res.Body.Role = user.Role
	res.Body.LastLogin = user.LastLogin
	return res, nil
}
