//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=../mocks/mock_resolver.go -package=mocks
package services

import (
	goerrors "errors"

	"duochat/domain"
	"duochat/errors"
	"duochat/repositories"
)

type IConversationResolver interface {
	Resolve(userA, userB string) (string, bool, error)
}

// ConversationResolver translates an unordered pair of user ids into the
// existing conversation id. Pure lookup: it never creates state, and absence
// is an expected outcome reported through the boolean, not an error.
type ConversationResolver struct {
	conversations repositories.IConversationRepository
}

func NewConversationResolver(conversations repositories.IConversationRepository) ConversationResolver {
	return ConversationResolver{conversations: conversations}
}

func (r ConversationResolver) Resolve(userA, userB string) (string, bool, error) {
	pair, err := domain.NewParticipantPair(userA, userB)
	if err != nil {
		return "", false, err
	}
	convID, err := r.conversations.FindByParticipants(pair)
	switch {
	case err == nil:
		return convID, true, nil
	case goerrors.Is(err, errors.ErrConversationNotFound):
		return "", false, nil
	default:
		return "", false, err
	}
}
