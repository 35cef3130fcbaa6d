package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hpnhann/event-planner-backend/internal/models"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type mockUserRepo struct {
	users       []models.User
	byID        *models.User
	byEmail     *models.User
	created     *models.User
	updated     *models.User
	deactivated []string
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return m.users, len(m.users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.byEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmail, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.created = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func TestUserCreateHashesPassword(t *testing.T) {
	repo := &mockUserRepo{}
	audit := &mockAudit{}
	svc := NewUserService(repo, validator.New(), zap.NewNop(), audit)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "New@Example.com",
		FullName: "New User",
		Role:     models.RoleParticipant,
		Active:   true,
		Password: "password",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password")))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionUserCreate, audit.logs[0].Action)
}

func TestUserCreateDuplicateEmailRejected(t *testing.T) {
	repo := &mockUserRepo{byEmail: &models.User{ID: "u1", Email: "dup@example.com"}}
	svc := NewUserService(repo, validator.New(), zap.NewNop(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "dup@example.com",
		FullName: "Dup",
		Role:     models.RoleParticipant,
		Password: "password",
	}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "new@example.com",
		FullName: "New",
		Role:     models.UserRole("SUPERUSER"),
		Password: "password",
	}, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateRole(t *testing.T) {
	repo := &mockUserRepo{byID: &models.User{ID: "u1", FullName: "Old", Role: models.RoleParticipant, Active: true}}
	svc := NewUserService(repo, validator.New(), zap.NewNop(), nil)

	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{FullName: "Old", Role: models.RoleOrganizer}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizer, user.Role)
	assert.True(t, user.Active, "nil active flag leaves the value untouched")
	require.NotNil(t, repo.updated)
}

func TestUserDeactivate(t *testing.T) {
	repo := &mockUserRepo{byID: &models.User{ID: "u1", Active: true}}
	svc := NewUserService(repo, validator.New(), zap.NewNop(), nil)

	require.NoError(t, svc.Deactivate(context.Background(), "u1", "admin"))
	assert.Equal(t, []string{"u1"}, repo.deactivated)
}

func TestUserGetNotFound(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
