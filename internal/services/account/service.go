// Package account handles registration, login and bearer tokens.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
)

const (
	maxUsernameLength = 150
	bcryptCost        = 10
)

const (
	msgRequired        = "This field is required."
	msgUsernameLength  = "Ensure this field has no more than 150 characters."
	msgUsernameChars   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgUsernameTaken   = "A user with that username already exists."
	msgEmailInvalid    = "Enter a valid email address."
	msgEmailTaken      = "A user with that email already exists."
	msgInvalidToken    = "Token is invalid or expired"
	msgInvalidPassword = "Invalid credentials"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]+$`)

// Compile-time interface check
var _ interfaces.AccountService = (*Service)(nil)

// Service implements AccountService
type Service struct {
	users      interfaces.UserStore
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *common.Logger
	now        func() time.Time
}

// NewService creates a new account service
func NewService(users interfaces.UserStore, cfg common.AuthConfig, logger *common.Logger) *Service {
	return &Service{
		users:      users,
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.GetAccessTokenExpiry(),
		refreshTTL: cfg.GetRefreshTokenExpiry(),
		logger:     logger,
		now:        time.Now,
	}
}

// Register validates and stores a new account. Field problems come back
// as a *common.ValidationError.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	verr := common.NewValidationError()
	switch {
	case username == "":
		verr.Add("username", msgRequired)
	case len(username) > maxUsernameLength:
		verr.Add("username", msgUsernameLength)
	case !usernamePattern.MatchString(username):
		verr.Add("username", msgUsernameChars)
	default:
		taken, err := s.exists(s.users.GetUser(ctx, username))
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("username", msgUsernameTaken)
		}
	}

	switch {
	case email == "":
		verr.Add("email", msgRequired)
	case !validEmail(email):
		verr.Add("email", msgEmailInvalid)
	default:
		taken, err := s.exists(s.users.GetUserByEmail(ctx, email))
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("email", msgEmailTaken)
		}
	}

	if password == "" {
		verr.Add("password", msgRequired)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	// bcrypt ignores everything past 72 bytes
	passwordBytes := []byte(password)
	if len(passwordBytes) > 72 {
		passwordBytes = passwordBytes[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(passwordBytes, bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			verr.Add("email", msgEmailTaken)
			return nil, verr
		}
		if errors.Is(err, common.ErrConflict) {
			verr.Add("username", msgUsernameTaken)
			return nil, verr
		}
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("User registered")
	return user, nil
}

// exists turns a store lookup into a presence flag.
func (s *Service) exists(_ *models.User, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Login resolves email to a user and issues a refresh/access pair.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.InvalidArgument("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	passwordBytes := []byte(password)
	if len(passwordBytes) > 72 {
		passwordBytes = passwordBytes[:72]
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordBytes); err != nil {
		s.logger.Debug().Str("username", user.Username).Msg("Login rejected")
		return nil, common.Unauthorized(msgInvalidPassword)
	}

	refresh, err := s.signToken(user.Username, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	access, err := s.signToken(user.Username, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	s.logger.Info().Str("username", user.Username).Msg("User logged in")
	return &models.TokenPair{Refresh: refresh, Access: access}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	username, err := s.parseToken(strings.TrimSpace(refreshToken), tokenTypeRefresh)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Refresh token rejected")
		return "", common.Unauthorized(msgInvalidToken)
	}
	if _, err := s.users.GetUser(ctx, username); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.Unauthorized(msgInvalidToken)
		}
		return "", err
	}

	access, err := s.signToken(username, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return access, nil
}

// Authenticate resolves an access token to its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	username, err := s.parseToken(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, common.Unauthorized(msgInvalidToken)
	}
	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Unauthorized(msgInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

// validEmail accepts a bare address with a dotted domain.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at+1:], ".")
}
