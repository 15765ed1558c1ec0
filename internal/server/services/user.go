// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and issuing JWTs, and
// resolves file owners' contact addresses for the download gate.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/cryptox"
	"github.com/dmitrijs2005/geocrypt/internal/server/auth"
	"github.com/dmitrijs2005/geocrypt/internal/server/config"
	"github.com/dmitrijs2005/geocrypt/internal/server/metrics"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/dmitrijs2005/geocrypt/internal/server/repositories/repomanager"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// UserService provides authentication-related operations:
// - Register: create users and mint an access token
// - Login: verify credentials and mint an access token
// - GetByID / ContactAddress: read users, cached for a short TTL
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	cache                       *expirable.LRU[string, *models.User]
}

// NewUserService constructs a UserService using repositories and server config.
// A non-positive UserCacheSize disables the user cache.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	s := &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
	if cfg.UserCacheSize > 0 {
		s.cache = expirable.NewLRU[string, *models.User](cfg.UserCacheSize, nil, cfg.UserCacheTTL)
	}
	return s
}

func validateRegistration(username, email, password string) error {
	if strings.TrimSpace(username) == "" || username != strings.TrimSpace(username) {
		return fmt.Errorf("%w: username must be non-empty without surrounding spaces", common.ErrorValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}
	return nil
}

// Register creates a new user and returns it with a fresh access token.
// A taken username or email yields common.ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, "", err
	}

	user := &models.User{UserName: username, Email: email, PasswordHash: cryptox.HashPassword(password)}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, "", common.ErrAlreadyExists
		}
		return nil, "", fmt.Errorf("error creating user: %w", err)
	}

	token, err := s.generateAccessToken(u.ID)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return u, token, nil
}

// Login verifies the password for userName and, on success, returns the user
// and a new access token. Unknown users and wrong passwords are both
// common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, userName, password string) (*models.User, string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, "", common.ErrorUnauthorized
	}

	token, err := s.generateAccessToken(user.ID)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return user, token, nil
}

// GetByID returns the user with id, consulting the cache first.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.cache != nil {
		if u, ok := s.cache.Get(id); ok {
			metrics.CacheHit()
			return u, nil
		}
		metrics.CacheMiss()
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Add(id, u)
	}
	return u, nil
}

// ContactAddress returns the email address codes for userID's files go to.
func (s *UserService) ContactAddress(ctx context.Context, userID string) (string, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}
