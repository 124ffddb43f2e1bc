package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

func TestProfileServiceUpdate(t *testing.T) {
	admin := passwordUser(t, 1, "admin@example.com", "secret1", models.RoleAdmin)
	admin.ProfilePicture = strPtr("uploads/profile/old.png")
	users := newMemUserRepo(admin)
	storage := newMemStorage()
	activity := &recordingActivity{}
	svc := NewProfileService(users, storage, activity, nil, zap.NewNop(), 1024)

	pic := upload("", "me.PNG", "png-bytes")
	view, err := svc.Update(context.Background(), 1, dto.UpdateProfileRequest{FullName: " Head Admin ", Password: "newpass"}, &pic)
	require.NoError(t, err)
	assert.Equal(t, "Head Admin", view.FullName)
	require.NotNil(t, view.ProfilePicture)
	assert.True(t, strings.HasPrefix(*view.ProfilePicture, "uploads/profile/"))
	assert.True(t, strings.HasSuffix(*view.ProfilePicture, ".png"))
	assert.Equal(t, []string{"uploads/profile/old.png"}, storage.deleted)
	assert.Equal(t, []string{"update_profile"}, activity.actions)

	stored := users.get(1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("newpass")))
	assert.Equal(t, "admin@example.com", stored.Email)
}

func TestProfileServiceRejectsDuplicateEmail(t *testing.T) {
	users := newMemUserRepo(
		passwordUser(t, 1, "admin@example.com", "secret1", models.RoleAdmin),
		passwordUser(t, 2, "other@example.com", "secret1", models.RoleUser),
	)
	svc := NewProfileService(users, newMemStorage(), nil, nil, zap.NewNop(), 0)

	_, err := svc.Update(context.Background(), 1, dto.UpdateProfileRequest{Email: "Other@example.com"}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestProfileServiceRejectsNonImage(t *testing.T) {
	users := newMemUserRepo(passwordUser(t, 1, "admin@example.com", "secret1", models.RoleAdmin))
	storage := newMemStorage()
	svc := NewProfileService(users, storage, nil, nil, zap.NewNop(), 0)

	pic := upload("", "script.exe", "MZ")
	_, err := svc.Update(context.Background(), 1, dto.UpdateProfileRequest{}, &pic)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, storage.files)
}

func TestProfileServiceKeepsRemotePicture(t *testing.T) {
	admin := passwordUser(t, 1, "admin@example.com", "secret1", models.RoleAdmin)
	admin.ProfilePicture = strPtr("https://lh3.googleusercontent.com/a/photo")
	storage := newMemStorage()
	svc := NewProfileService(newMemUserRepo(admin), storage, nil, nil, zap.NewNop(), 0)

	pic := upload("", "me.jpg", "jpg")
	_, err := svc.Update(context.Background(), 1, dto.UpdateProfileRequest{}, &pic)
	require.NoError(t, err)
	assert.Empty(t, storage.deleted)
}

func TestProfileServiceGet(t *testing.T) {
	svc := NewProfileService(newMemUserRepo(passwordUser(t, 1, "admin@example.com", "secret1", models.RoleAdmin)), newMemStorage(), nil, nil, zap.NewNop(), 0)

	view, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, view.Role)

	_, err = svc.Get(context.Background(), 9)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
