package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/trakfit-api/internal/models"
	appErrors "github.com/noah-isme/trakfit-api/pkg/errors"
)

type mockUserRepo struct {
	userByEmail      *models.User
	emailTaken       bool
	createErr        error
	createdUser      *models.User
	createdStudent   *models.Student
	refreshTokens    map[string]*models.RefreshToken
	lastLoginUpdated bool
	passwordUpdated  string
	revokedAll       bool
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil || m.userByEmail.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByEmail == nil || m.userByEmail.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emailTaken, nil
}

func (m *mockUserRepo) CreateWithStudent(ctx context.Context, user *models.User, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u1"
	student.UserID = user.ID
	m.createdUser = user
	m.createdStudent = student
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdated = passwordHash
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return nil
}

type mockStudentNoIndex struct {
	taken bool
}

func (m *mockStudentNoIndex) ExistsByStudentNo(ctx context.Context, studentNo string) (bool, error) {
	return m.taken, nil
}

type mockActivityWriter struct {
	notes []*models.ActivityNote
}

func (m *mockActivityWriter) Create(ctx context.Context, note *models.ActivityNote) error {
	m.notes = append(m.notes, note)
	return nil
}

func newTestAuthService(repo *mockUserRepo, students *mockStudentNoIndex, activity *mockActivityWriter) *AuthService {
	if activity == nil {
		activity = &mockActivityWriter{}
	}
	return NewAuthService(repo, students, activity, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "trakfit-api",
	})
}

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Email:           "juan@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		StudentNo:       "2024-001",
		FirstName:       "Juan",
		LastName:        "Dela Cruz",
		Age:             16,
		SectionCode:     "A",
		GroupCode:       "G1",
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{userByEmail: &models.User{ID: "u1", Email: "juan@example.com", PasswordHash: string(password), Active: true}}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "juan@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.False(t, res.User.Staff)
	assert.True(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{userByEmail: &models.User{ID: "u1", Email: "juan@example.com", PasswordHash: string(password), Active: true}}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "juan@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{userByEmail: &models.User{ID: "u1", Email: "juan@example.com", PasswordHash: string(password), Active: false}}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "juan@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterSuccess(t *testing.T) {
	repo := &mockUserRepo{}
	activity := &mockActivityWriter{}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, activity)

	res, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.True(t, res.PreTestPending)
	require.NotNil(t, repo.createdStudent)
	assert.True(t, repo.createdStudent.PreTestPending)

	require.Len(t, activity.notes, 1)
	assert.Equal(t, "Student Juan Dela Cruz registered", activity.notes[0].Body)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{emailTaken: true}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.createdUser)
}

func TestAuthServiceRegisterDuplicateStudentNo(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestAuthService(repo, &mockStudentNoIndex{taken: true}, nil)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.createdUser)
}

func TestAuthServiceRegisterPasswordMismatch(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	req := validRegisterRequest()
	req.ConfirmPassword = "different"
	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.createdUser)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := &mockUserRepo{
		userByEmail:   &models.User{ID: "u1", Email: "juan@example.com", PasswordHash: "hash", Active: true},
		refreshTokens: map[string]*models.RefreshToken{},
	}
	old := &models.RefreshToken{ID: "rt1", UserID: "u1", Token: "old-token", ExpiresAt: time.Now().Add(time.Hour)}
	repo.refreshTokens[old.Token] = old
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	res, err := svc.Refresh(context.Background(), "old-token", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, old.Revoked)
}

func TestAuthServiceRefreshExpired(t *testing.T) {
	repo := &mockUserRepo{
		userByEmail:   &models.User{ID: "u1", Email: "juan@example.com", Active: true},
		refreshTokens: map[string]*models.RefreshToken{},
	}
	repo.refreshTokens["old-token"] = &models.RefreshToken{ID: "rt1", UserID: "u1", Token: "old-token", ExpiresAt: time.Now().Add(-time.Hour)}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	_, err := svc.Refresh(context.Background(), "old-token", "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := &mockUserRepo{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "someone-else", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	err := svc.Logout(context.Background(), "token", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{userByEmail: &models.User{ID: "u1", Email: "juan@example.com", PasswordHash: string(password), Active: true}}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "secret1", NewPassword: "newsecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordUpdated)
	assert.True(t, repo.revokedAll)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newsecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{userByEmail: &models.User{ID: "u1", Email: "juan@example.com", PasswordHash: string(password), Active: true, Staff: true}}
	svc := newTestAuthService(repo, &mockStudentNoIndex{}, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "juan@example.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.True(t, claims.Staff)

	_, err = svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
