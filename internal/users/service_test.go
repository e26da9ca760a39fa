package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuflow/internal/shared/validate"
)

func newService() *Service {
	return &Service{
		Repo: NewMemoryRepo(),
		Now:  func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) },
	}
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	user, err := svc.Create(ctx, "  Ana@Example.com ", "Ana", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "s3cret-pass", *user.PasswordHash)

	got, err := svc.Authenticate(ctx, "ANA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, "ana@example.com", "Ana", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "ANA@example.com", "Other", "another-pass")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateValidatesInput(t *testing.T) {
	_, err := newService().Create(context.Background(), "not-an-email", "", "short")
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Issues, "email")
	assert.Contains(t, verr.Issues, "password")
}

func TestUpsertFromGitHubLinksExistingAccount(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created, err := svc.Create(ctx, "ana@example.com", "Ana", "s3cret-pass")
	require.NoError(t, err)

	linked, err := svc.UpsertFromGitHub(ctx, GitHubProfile{Login: "ana-gh", Email: "ana@example.com", AvatarURL: "https://avatars.example/ana"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, linked.ID)
	require.NotNil(t, linked.GitHubLogin)
	assert.Equal(t, "ana-gh", *linked.GitHubLogin)
	assert.Equal(t, "Ana", linked.Name)

	again, err := svc.UpsertFromGitHub(ctx, GitHubProfile{Login: "ana-gh", Email: "ana@new.example"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "ana@new.example", again.Email)

	// The password still works after linking.
	_, err = svc.Authenticate(ctx, "ana@new.example", "s3cret-pass")
	assert.NoError(t, err)
}

func TestUpsertFromGitHubCreatesAccount(t *testing.T) {
	svc := newService()
	user, err := svc.UpsertFromGitHub(context.Background(), GitHubProfile{Login: "octo", Email: "octo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "octo", user.Name)
	assert.Nil(t, user.PasswordHash)

	_, err = svc.Authenticate(context.Background(), "octo@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpsertFromGitHubRequiresEmail(t *testing.T) {
	_, err := newService().UpsertFromGitHub(context.Background(), GitHubProfile{Login: "octo"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetByIDEmpty(t *testing.T) {
	_, err := newService().GetByID(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNotFound)
}
