package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
	"github.com/iliyamo/freelance-marketplace/internal/utils"
)

// Session is returned by Register and Login.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	Verified  bool       `json:"verified"`
}

// AuthService registers accounts and issues identity tokens.
type AuthService struct {
	users      repository.UserRepository
	codec      *utils.TokenCodec
	bcryptCost int
	log        logrus.FieldLogger
}

// NewAuthService returns the registration and login service.
func NewAuthService(users repository.UserRepository, codec *utils.TokenCodec, bcryptCost int, log logrus.FieldLogger) *AuthService {
	return &AuthService{users: users, codec: codec, bcryptCost: bcryptCost, log: log}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Register creates a CLIENT or FREELANCER account.  Administrators are
// provisioned out of band.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	if l := len(username); l < 3 || l > 64 || strings.ContainsAny(username, " /") {
		return nil, invalidInput("username must be 3-64 characters without spaces or slashes")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalidInput("email is not valid")
	}
	if len(in.Password) < 6 {
		return nil, invalidInput("password must be at least 6 characters")
	}
	role, ok := model.ParseRole(strings.TrimPrefix(strings.ToUpper(in.Role), "ROLE_"))
	if !ok || role == model.RoleAdmin {
		return nil, invalidInput("role must be CLIENT or FREELANCER")
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Username: username, Email: in.Email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": role}).Info("account registered")
	return s.session(u)
}

// Login checks the password and issues a token.  Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, utils.ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *AuthService) session(u *model.User) (*Session, error) {
	tok, exp, err := s.codec.Issue(u.Username, u.Role, u.Verified)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: exp, Username: u.Username, Role: u.Role, Verified: u.Verified}, nil
}
