package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"factoryms/internal/model"
	"factoryms/pkg/apperror"
)

type stubUserRepo struct {
	fakeUserRepo
	users         map[string]*model.User
	refreshTokens map[string]*model.RefreshToken
	created       []*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:         map[string]*model.User{},
		refreshTokens: map[string]*model.RefreshToken{},
	}
}

func (s *stubUserRepo) addUser(u *model.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID.String()] = u
}

func (s *stubUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	s.created = append(s.created, user)
	s.addUser(user)
	return nil
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	s.refreshTokens[token.Token] = token
	return nil
}

func (s *stubUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	if t, ok := s.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	delete(s.refreshTokens, token)
	return nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func TestCreateUser(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, &recordedActivity{})

	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username:   "jdoe",
		Email:      "jdoe@factory.local",
		Password:   "secret123",
		Role:       model.RoleUser,
		Department: "Maintenance",
	})
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
	assert.True(t, user.IsActive)

	require.Len(t, repo.created, 1)
	assert.NotEqual(t, "secret123", repo.created[0].Password, "password must be hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].Password), []byte("secret123")))

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := svc.CreateUser(context.Background(), CreateUserRequest{
			Username: "jdoe", Email: "other@factory.local", Password: "secret123", Role: model.RoleUser,
		})
		assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
	})

	t.Run("mixed-case email accepted", func(t *testing.T) {
		user, err := svc.CreateUser(context.Background(), CreateUserRequest{
			Username: "jsmith", Email: "John.Smith@Factory.Local", Password: "secret123", Role: model.RoleUser,
		})
		require.NoError(t, err)
		assert.Equal(t, "John.Smith@Factory.Local", user.Email)
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		_, err := svc.CreateUser(context.Background(), CreateUserRequest{
			Username: "bad", Email: "not-an-email", Password: "secret123", Role: model.RoleUser,
		})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		_, err := svc.CreateUser(context.Background(), CreateUserRequest{
			Username: "root", Email: "root@factory.local", Password: "secret123", Role: "superadmin",
		})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})
}

func TestLogin(t *testing.T) {
	repo := newStubUserRepo()
	repo.addUser(&model.User{
		Username: "mgr",
		Email:    "mgr@factory.local",
		Password: hashFor(t, "letmein"),
		Role:     model.RoleManager,
		IsActive: true,
	})
	repo.addUser(&model.User{
		Username: "ghost",
		Email:    "ghost@factory.local",
		Password: hashFor(t, "letmein"),
		Role:     model.RoleUser,
		IsActive: false,
	})

	activity := &recordedActivity{}
	svc := NewUserService(repo, activity)

	t.Run("valid credentials", func(t *testing.T) {
		result, err := svc.Login(context.Background(), LoginUserRequest{Username: "mgr", Password: "letmein"}, "10.0.0.1", "curl")
		require.NoError(t, err)
		assert.Equal(t, model.RoleManager, result.User.Role)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
		assert.Contains(t, repo.refreshTokens, result.Tokens.RefreshToken)
		require.Len(t, activity.entries, 1)
		assert.Equal(t, model.ActivityLogin, activity.entries[0].Action)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginUserRequest{Username: "mgr", Password: "wrong"}, "", "")
		assert.Error(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginUserRequest{Username: "nobody", Password: "letmein"}, "", "")
		assert.Error(t, err)
	})

	t.Run("inactive account", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginUserRequest{Username: "ghost", Password: "letmein"}, "", "")
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})
}

func TestRefresh_RotatesToken(t *testing.T) {
	repo := newStubUserRepo()
	user := &model.User{Username: "jdoe", Email: "jdoe@factory.local", Password: "x", Role: model.RoleUser, IsActive: true}
	repo.addUser(user)
	repo.refreshTokens["old-token"] = &model.RefreshToken{
		UserID:    user.ID,
		Token:     "old-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	svc := NewUserService(repo, &recordedActivity{})

	tokens, err := svc.Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotContains(t, repo.refreshTokens, "old-token", "used refresh token must be revoked")
	assert.Contains(t, repo.refreshTokens, tokens.RefreshToken)

	// Replaying the consumed token fails.
	_, err = svc.Refresh(context.Background(), "old-token")
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestRefresh_Expired(t *testing.T) {
	repo := newStubUserRepo()
	user := &model.User{Username: "jdoe", Email: "jdoe@factory.local", Password: "x", Role: model.RoleUser, IsActive: true}
	repo.addUser(user)
	repo.refreshTokens["stale"] = &model.RefreshToken{
		UserID:    user.ID,
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	svc := NewUserService(repo, &recordedActivity{})

	_, err := svc.Refresh(context.Background(), "stale")
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	assert.NotContains(t, repo.refreshTokens, "stale")
}

func TestDeleteUser_SelfDeleteRejected(t *testing.T) {
	repo := newStubUserRepo()
	user := &model.User{Username: "admin", Email: "admin@factory.local", Password: "x", Role: model.RoleAdmin, IsActive: true}
	repo.addUser(user)

	svc := NewUserService(repo, &recordedActivity{})

	err := svc.DeleteUser(context.Background(), Actor{ID: user.ID, Role: model.RoleAdmin}, user.ID.String())
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
