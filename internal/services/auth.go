package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/fintrack/apiserver/internal/auth"
	"github.com/fintrack/apiserver/internal/store"
	"github.com/fintrack/apiserver/types"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

const maxNameLength = 50

// dummyPasswordHash is compared against when the email is unknown so that
// both failure paths cost one bcrypt comparison.
var dummyPasswordHash = mustHash("fintrack-dummy-password")

func mustHash(password string) string {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Token      string
	Expiration time.Time
	User       types.User
}

// AuthService issues tokens for new and returning users.
type AuthService struct {
	users  UserRepository
	tokens *auth.TokenIssuer
	policy auth.PasswordPolicy
}

func NewAuthService(users UserRepository, tokens *auth.TokenIssuer, policy auth.PasswordPolicy) *AuthService {
	return &AuthService{users: users, tokens: tokens, policy: policy}
}

// Register creates the account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(user)
}

// CreateUser validates in and persists a new user without issuing a token.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := s.validateRegistration(in); err != nil {
		return types.User{}, err
	}

	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return types.User{}, fmt.Errorf("username already exists: %w", store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, fmt.Errorf("email already exists: %w", store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Login checks the password of the account registered under email.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		verr := &ValidationError{}
		if email == "" {
			verr.add("email", "email is required")
		}
		if password == "" {
			verr.add("password", "password is required")
		}
		return AuthResult{}, verr
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			auth.CheckPassword(dummyPasswordHash, password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthService) issue(user types.User) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: token, Expiration: expiresAt, User: user}, nil
}

func (s *AuthService) validateRegistration(in RegisterInput) error {
	verr := &ValidationError{}

	switch {
	case in.Username == "":
		verr.add("username", "username is required")
	case !usernamePattern.MatchString(in.Username):
		verr.add("username", "username must be 3-50 letters, digits, '.', '_' or '-'")
	}

	if in.Email == "" {
		verr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		verr.add("email", "email is not a valid address")
	}

	if in.Password == "" {
		verr.add("password", "password is required")
	} else if err := s.policy.Check(in.Password); err != nil {
		verr.add("password", err.Error())
	}

	if len([]rune(in.FirstName)) > maxNameLength {
		verr.add("firstName", fmt.Sprintf("first name must be at most %d characters", maxNameLength))
	}
	if len([]rune(in.LastName)) > maxNameLength {
		verr.add("lastName", fmt.Sprintf("last name must be at most %d characters", maxNameLength))
	}

	return verr.err()
}
