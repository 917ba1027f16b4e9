package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/interfaces"
	"github.com/bobmcallan/fleece/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const userTable = "user"

// userEmailIndex enforces one account per email, compared case-insensitively.
const userEmailIndex = "user_email_key"

// userRecord is the stored form of a user. EmailKey is the lowercased email
// that userEmailIndex covers.
type userRecord struct {
	models.User
	EmailKey string `json:"email_key"`
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserStore keeps accounts in the user table keyed by username.
type UserStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewUserStore(db *surrealdb.DB, logger *common.Logger) *UserStore {
	return &UserStore{
		db:     db,
		logger: logger,
	}
}

func (s *UserStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := surrealdb.Select[models.User](ctx, s.db, surrealmodels.NewRecordID(userTable, username))
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	if user == nil || user.Username == "" {
		return nil, common.NotFound("user")
	}
	return user, nil
}

// GetUserByEmail matches the email case-insensitively.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	sql := "SELECT * FROM user WHERE email_key = $email LIMIT 1"
	vars := map[string]any{"email": emailKey(email)}

	results, err := surrealdb.Query[[]models.User](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, common.NotFound("user")
	}
	user := (*results)[0].Result[0]
	return &user, nil
}

// CreateUser inserts a new account. An existing username or email is a
// conflict; the email case wraps common.ErrEmailTaken.
func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	sql := "CREATE type::record('user', $id) CONTENT $user"
	rec := userRecord{User: *user, EmailKey: emailKey(user.Email)}
	vars := map[string]any{"id": user.Username, "user": rec}

	if _, err := surrealdb.Query[[]models.User](ctx, s.db, sql, vars); err != nil {
		if isUniqueIndexError(err, userEmailIndex) {
			return &common.ClassError{
				Class:   common.ErrConflict,
				Message: "A user with that email already exists.",
				Err:     common.ErrEmailTaken,
			}
		}
		if isAlreadyExistsError(err) {
			return common.Conflict("A user with that username already exists.")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("username", user.Username).Msg("User created")
	return nil
}

func isAlreadyExistsError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// isUniqueIndexError matches "Database index `<index>` already contains ...".
func isUniqueIndexError(err error, index string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, index) && strings.Contains(msg, "already contains")
}

var _ interfaces.UserStore = (*UserStore)(nil)
