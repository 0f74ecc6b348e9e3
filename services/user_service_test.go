package services_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"duochat/domain"
	"duochat/errors"
	"duochat/mocks"
	"duochat/services"
)

func TestUserService_CreateUser(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIUserRepository(ctrl)

	expected := domain.User{ID: "u-1", Nickname: "santa.claus", CreatedAt: time.Now().UTC()}
	repository.EXPECT().CreateUser("santa.claus").Return(expected, nil)

	service := services.NewUserService(repository, slog.Default())
	user, err := service.CreateUser("santa.claus")
	req.NoError(err)
	req.Equal(expected, user)
}

func TestUserService_CreateUser_Duplicate(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIUserRepository(ctrl)
	repository.EXPECT().CreateUser("santa.claus").Return(domain.User{}, errors.ErrDuplicateNickname)

	service := services.NewUserService(repository, slog.Default())
	_, err := service.CreateUser("santa.claus")
	req.ErrorIs(err, errors.ErrDuplicateNickname)
}

func TestUserService_CreateUser_Rejects_Blank_Nickname(t *testing.T) {
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIUserRepository(ctrl)
	service := services.NewUserService(repository, slog.Default())

	_, err := service.CreateUser("")
	require.Error(t, err)
}
