package services

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonchat/pkg/errors"
)

func TestRegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	users := NewUserService()
	nickname := gofakeit.Username() + gofakeit.DigitN(6)
	password := gofakeit.Password(true, true, true, false, false, 12)

	user, token, err := users.Register(ctx, &nickname, password)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, nickname, user.DisplayName())

	userID, err := users.CheckToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// повторный логин выдает новый токен, старый отзывается
	_, newToken, err := users.Login(ctx, nickname, password)
	require.NoError(t, err)
	require.NotEmpty(t, newToken)
	assert.NotEqual(t, token, newToken)

	_, err = users.CheckToken(ctx, token)
	assert.Equal(t, errors.CodeUnauthenticated, errors.CodeOf(err))

	require.NoError(t, users.Logout(ctx, user.ID))
	_, err = users.CheckToken(ctx, newToken)
	assert.Equal(t, errors.CodeUnauthenticated, errors.CodeOf(err))
}

func TestRegisterAnonymous(t *testing.T) {
	ctx := context.Background()
	users := NewUserService()

	user, token, err := users.Register(ctx, nil, gofakeit.Password(true, true, true, false, false, 12))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Nil(t, user.Nickname)
	assert.NotEmpty(t, user.DisplayName())
}

func TestRegisterDuplicateNickname(t *testing.T) {
	ctx := context.Background()
	users := NewUserService()
	nickname := gofakeit.Username() + gofakeit.DigitN(6)

	_, _, err := users.Register(ctx, &nickname, "password1234")
	require.NoError(t, err)

	_, _, err = users.Register(ctx, &nickname, "password1234")
	assert.Equal(t, errors.CodeAlreadyExists, errors.CodeOf(err))
}

func TestLoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	users := NewUserService()
	nickname := gofakeit.Username() + gofakeit.DigitN(6)

	_, _, err := users.Register(ctx, &nickname, "correct-horse")
	require.NoError(t, err)

	_, _, err = users.Login(ctx, nickname, "wrong-battery")
	assert.Equal(t, errors.CodeUnauthenticated, errors.CodeOf(err))

	_, _, err = users.Login(ctx, "no-such-"+nickname, "correct-horse")
	assert.Equal(t, errors.CodeUnauthenticated, errors.CodeOf(err))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	users := NewUserService()

	user, _, err := users.Register(ctx, nil, "password1234")
	require.NoError(t, err)

	nickname := gofakeit.Username() + gofakeit.DigitN(6)
	image := "https://example.com/avatar.png"
	updated, err := users.UpdateProfile(ctx, user.ID, &nickname, &image)
	require.NoError(t, err)
	require.NotNil(t, updated.Nickname)
	assert.Equal(t, nickname, *updated.Nickname)
	require.NotNil(t, updated.Image)
	assert.Equal(t, image, *updated.Image)

	// пустая строка снимает никнейм, возвращая анонимный псевдоним
	empty := ""
	updated, err = users.UpdateProfile(ctx, user.ID, &empty, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.Nickname)
}
