// Package auth issues and verifies the JWT bearer tokens of the messaging API.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/logger"
	"messaging-service/pkg/security"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

const (
	msgBadCredentials = "No active account found with the given credentials"
	msgInvalidToken   = "Given token not valid for any token type"
	msgUserNotFound   = "User not found"
)

// Claims are the JWT claims of both token types.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Config holds the signing settings.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	Access  string
	Refresh string
}

// UserLookup resolves accounts for login and token verification.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*chat.User, error)
	GetByEmail(ctx context.Context, email string) (*chat.User, error)
}

// Service implements login, refresh and bearer token authentication.
type Service struct {
	cfg   Config
	users UserLookup
	log   *zap.Logger
	now   func() time.Time
}

// New creates a new Service.
func New(cfg Config, users UserLookup, log *zap.Logger) *Service {
	return &Service{cfg: cfg, users: users, log: log, now: time.Now}
}

// Login checks credentials and issues an access and a refresh token.
// Unknown, inactive and wrong-password accounts are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	log := logger.WithContext(ctx, s.log)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load user", err)
	}
	if u == nil || !u.IsActive || !security.CheckPassword(u.PasswordHash, password) {
		log.Warn("login failed", zap.String("email", email))
		return nil, apperrors.NewUnauthenticatedError(msgBadCredentials)
	}

	access, err := s.issue(u.ID, TokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(u.ID, TokenTypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	log.Info("user logged in", zap.String("user_id", u.ID))
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		logger.WithContext(ctx, s.log).Debug("refresh rejected", zap.Error(err))
		return "", err
	}
	return s.issue(claims.Subject, TokenTypeAccess, s.cfg.AccessTTL)
}

// Authenticate verifies an access token and returns the active user it names.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*chat.User, error) {
	claims, err := s.parse(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthenticatedError(msgUserNotFound)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, apperrors.NewUnauthenticatedError("User is inactive")
	}
	return u, nil
}

func (s *Service) issue(userID, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", apperrors.NewInternalError("failed to sign token", err)
	}
	return signed, nil
}

func (s *Service) parse(tokenString, wantType string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewUnauthenticatedError("Token is expired")
		}
		return nil, apperrors.NewUnauthenticatedError(msgInvalidToken)
	}
	if claims.TokenType != wantType || claims.Subject == "" {
		return nil, apperrors.NewUnauthenticatedError(msgInvalidToken)
	}
	return &claims, nil
}
