package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthscope/symptom-checker/backend/middleware"
	"github.com/healthscope/symptom-checker/backend/models"
	"github.com/healthscope/symptom-checker/backend/repositories"
)

const minPasswordLength = 8

// AuthService handles registration, login and token validation. Tokens are
// HS256 JWTs signed with the configured secret.
type AuthService struct {
	users     repositories.UserRepository
	txMgr     repositories.TransactionManager
	secretKey []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users repositories.UserRepository, txMgr repositories.TransactionManager, secretKey string, tokenTTL time.Duration, logger *zap.Logger) *AuthService {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		txMgr:     txMgr,
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register creates a new user account and returns it with a signed token.
func (s *AuthService) Register(ctx context.Context, email, fullName, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(email, strings.TrimSpace(fullName), string(hash))

	// duplicate check and insert share one transaction so concurrent
	// registrations for the same address cannot both pass the check
	err = s.txMgr.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
		if existing, err := s.users.GetByEmail(txCtx, email); err == nil && existing != nil {
			return ErrDuplicateEmail
		}
		return s.users.Create(txCtx, user)
	})
	if err != nil {
		if IsConflictError(err) {
			return nil, "", err
		}
		return nil, "", WrapInternal("failed to create user", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// Login verifies the credentials and returns the user with a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// same error for unknown email and wrong password
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Debug("user logged in", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// ValidateToken parses and verifies a token, returning the embedded claims.
// It implements middleware.TokenValidator.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*middleware.Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims := &middleware.Claims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Sub = sub
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.Exp = int64(exp)
	}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.Iat = int64(iat)
	}

	if claims.Sub == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// issueToken signs a new HS256 token for the user.
func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", WrapInternal("failed to sign token", err)
	}
	return signed, nil
}
