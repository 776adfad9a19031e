// Package auth is the identity provider: accounts, password checks and
// session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"artfolio/internal/model"
	"artfolio/internal/repository"
	"artfolio/pkg/rbac"
	"artfolio/pkg/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidInput       = errors.New("invalid registration data")
)

// UserStore 用户持久化
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type Service struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// Register 创建账号，邮箱不区分大小写
func (s *Service) Register(ctx context.Context, fullName, email, password string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = normalizeEmail(email)

	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		Role:         rbac.RoleOwner,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.String("uid", u.ID))
	return u, nil
}

// Login 校验密码并签发 token
func (s *Service) Login(ctx context.Context, email, password string) (string, Session, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Error("Failed to look up user", zap.Error(err))
		}
		return "", Session{Status: StatusNotAuthenticated}, ErrInvalidCredentials
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", Session{Status: StatusNotAuthenticated}, ErrInvalidCredentials
	}

	role := rbac.ParseRole(u.Role)
	token, err := util.GenerateJWT(u.ID, u.FullName, role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", Session{Status: StatusNotAuthenticated}, err
	}

	return token, Session{UID: u.ID, FullName: u.FullName, Role: role, Status: StatusAuthenticated}, nil
}

// Authenticate 解析 token 得到会话；无效时返回 not-authenticated
func (s *Service) Authenticate(token string) (Session, error) {
	if token == "" {
		return Session{Status: StatusNotAuthenticated}, ErrInvalidCredentials
	}
	claims, err := util.ParseJWT(token, s.jwtSecret)
	if err != nil {
		return Session{Status: StatusNotAuthenticated}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return Session{
		UID:      claims.UserID,
		FullName: claims.FullName,
		Role:     rbac.ParseRole(claims.Role),
		Status:   StatusAuthenticated,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
