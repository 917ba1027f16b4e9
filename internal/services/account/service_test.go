package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/fleece/internal/common"
	"github.com/bobmcallan/fleece/internal/models"
)

// --- Mocks ---

type mockUserStore struct {
	mu        sync.Mutex
	users     map[string]*models.User
	createErr error
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]*models.User{}}
}

func (m *mockUserStore) GetUser(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, common.NotFound("user")
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, common.NotFound("user")
}

func (m *mockUserStore) CreateUser(_ context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = user
	return nil
}

var testNow = time.Date(2024, 3, 29, 12, 0, 0, 0, time.UTC)

func newTestService(store *mockUserStore) *Service {
	cfg := common.AuthConfig{JWTSecret: "test-secret", AccessTokenExpiry: "5m", RefreshTokenExpiry: "24h"}
	svc := NewService(store, cfg, common.NewSilentLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Fields
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	store := newMockUserStore()
	svc := newTestService(store)

	user, err := svc.Register(context.Background(), "alice", "alice@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, testNow, user.CreatedAt)

	stored := store.users["alice"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret!", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret!")))
}

func TestRegister_RequiredFields(t *testing.T) {
	svc := newTestService(newMockUserStore())

	_, err := svc.Register(context.Background(), "", "", "")
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	fields := validationFields(t, err)
	assert.Equal(t, []string{msgRequired}, fields["username"])
	assert.Equal(t, []string{msgRequired}, fields["email"])
	assert.Equal(t, []string{msgRequired}, fields["password"])
}

func TestRegister_UsernameRules(t *testing.T) {
	svc := newTestService(newMockUserStore())

	tests := []struct {
		username string
		want     string
	}{
		{strings.Repeat("a", 151), msgUsernameLength},
		{"bad name", msgUsernameChars},
		{"semi;colon", msgUsernameChars},
	}
	for _, tt := range tests {
		_, err := svc.Register(context.Background(), tt.username, "x@example.com", "pw")
		fields := validationFields(t, err)
		assert.Equal(t, []string{tt.want}, fields["username"], tt.username)
	}

	_, err := svc.Register(context.Background(), "a.b+c@d_e-f", "ok@example.com", "pw")
	assert.NoError(t, err)
	_, err = svc.Register(context.Background(), strings.Repeat("z", 150), "z@example.com", "pw")
	assert.NoError(t, err)
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc := newTestService(newMockUserStore())

	for _, email := range []string{"not-an-email", "Bob <bob@example.com>", "bob@localhost"} {
		_, err := svc.Register(context.Background(), "bob", email, "pw")
		fields := validationFields(t, err)
		assert.Equal(t, []string{msgEmailInvalid}, fields["email"], email)
	}
}

func TestRegister_Duplicates(t *testing.T) {
	store := newMockUserStore()
	svc := newTestService(store)
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other@example.com", "pw")
	assert.Equal(t, []string{msgUsernameTaken}, validationFields(t, err)["username"])

	_, err = svc.Register(context.Background(), "alice2", "ALICE@example.com", "pw")
	assert.Equal(t, []string{msgEmailTaken}, validationFields(t, err)["email"])
}

func TestRegister_CreateConflictBecomesValidation(t *testing.T) {
	store := newMockUserStore()
	store.createErr = common.Conflict("exists")
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), "racer", "racer@example.com", "pw")
	assert.Equal(t, []string{msgUsernameTaken}, validationFields(t, err)["username"])
}

func TestRegister_CreateEmailConflictBecomesEmailError(t *testing.T) {
	store := newMockUserStore()
	store.createErr = &common.ClassError{Class: common.ErrConflict, Message: "exists", Err: common.ErrEmailTaken}
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), "racer", "racer@example.com", "pw")
	fields := validationFields(t, err)
	assert.Equal(t, []string{msgEmailTaken}, fields["email"])
	assert.NotContains(t, fields, "username")
}

func TestRegister_LongPasswordTruncated(t *testing.T) {
	store := newMockUserStore()
	svc := newTestService(store)
	long := strings.Repeat("p", 100)

	_, err := svc.Register(context.Background(), "longpw", "long@example.com", long)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "long@example.com", long)
	assert.NoError(t, err)
}

// --- Login ---

func TestLogin_IssuesTokenPair(t *testing.T) {
	store := newMockUserStore()
	svc := newTestService(store)
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "Alice@Example.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(pair.Access, claims)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "access", claims["token_type"])
	assert.Equal(t, tokenIssuer, claims["iss"])
	assert.NotEmpty(t, claims["jti"])
	assert.Equal(t, float64(testNow.Add(5*time.Minute).Unix()), claims["exp"])
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newTestService(newMockUserStore())

	_, err := svc.Login(context.Background(), "ghost@example.com", "pw")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "User not found", common.Message(err))
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(newMockUserStore())
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice@example.com", "nope")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.Equal(t, "Invalid credentials", common.Message(err))
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestService(newMockUserStore())

	_, err := svc.Login(context.Background(), "", "pw")
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}

// --- Tokens ---

func loggedIn(t *testing.T) (*Service, *models.TokenPair) {
	t.Helper()
	svc := newTestService(newMockUserStore())
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	pair, err := svc.Login(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	return svc, pair
}

func TestAuthenticate_AccessToken(t *testing.T) {
	svc, pair := loggedIn(t)

	user, err := svc.Authenticate(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	svc, pair := loggedIn(t)

	_, err := svc.Authenticate(context.Background(), pair.Refresh)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestAuthenticate_Expired(t *testing.T) {
	svc, pair := loggedIn(t)
	svc.now = func() time.Time { return testNow.Add(6 * time.Minute) }

	_, err := svc.Authenticate(context.Background(), pair.Access)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	svc, pair := loggedIn(t)
	svc.secret = []byte("another-secret")

	_, err := svc.Authenticate(context.Background(), pair.Access)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestRefresh_IssuesAccessToken(t *testing.T) {
	svc, pair := loggedIn(t)
	svc.now = func() time.Time { return testNow.Add(time.Hour) }

	access, err := svc.Refresh(context.Background(), pair.Refresh)
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, pair := loggedIn(t)

	_, err := svc.Refresh(context.Background(), pair.Access)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.Equal(t, msgInvalidToken, common.Message(err))
}

func TestRefresh_Garbage(t *testing.T) {
	svc := newTestService(newMockUserStore())

	_, err := svc.Refresh(context.Background(), "not.a.jwt")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestValidEmail(t *testing.T) {
	tests := map[string]bool{
		"a@b.co":               true,
		"first.last@corp.io":   true,
		"no-at-sign":           false,
		"two@@example.com":     false,
		"spaces in@mail.com":   false,
		"Name <n@example.com>": false,
	}
	for email, want := range tests {
		assert.Equal(t, want, validEmail(email), email)
	}
}
