package services_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"duochat/domain"
	"duochat/errors"
	"duochat/mocks"
	"duochat/services"
)

func TestConversationResolver_Resolve_Order_Independent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIConversationRepository(ctrl)

	pair, err := domain.NewParticipantPair("6", "420")
	req.NoError(err)
	repository.EXPECT().FindByParticipants(pair).Return("conv-1", nil).Times(2)

	resolver := services.NewConversationResolver(repository)

	convID, found, err := resolver.Resolve("420", "6")
	req.NoError(err)
	req.True(found)
	req.Equal("conv-1", convID)

	convID, found, err = resolver.Resolve("6", "420")
	req.NoError(err)
	req.True(found)
	req.Equal("conv-1", convID)
}

func TestConversationResolver_Absence_Is_Not_An_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIConversationRepository(ctrl)
	repository.EXPECT().FindByParticipants(gomock.Any()).Return("", errors.ErrConversationNotFound)

	resolver := services.NewConversationResolver(repository)
	_, found, err := resolver.Resolve("a", "b")
	req.NoError(err)
	req.False(found)
}

func TestConversationResolver_Rejects_Identical_Ids(t *testing.T) {
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIConversationRepository(ctrl)

	resolver := services.NewConversationResolver(repository)
	_, _, err := resolver.Resolve("420", "420")
	require.ErrorIs(t, err, errors.ErrInvalidRecipient)
}
