//go:generate go run go.uber.org/mock/mockgen -source=user_service.go -destination=../mocks/mock_user_service.go -package=mocks
package services

import (
	"fmt"
	"log/slog"

	"duochat/domain"
	"duochat/repositories"
)

type IUserService interface {
	CreateUser(nickname string) (domain.User, error)
	GetUser(id string) (domain.User, error)
}

// CreateUserCommand carries the account creation payload.
type CreateUserCommand struct {
	Nickname string `validate:"required,min=2,max=64"`
}

type UserService struct {
	users repositories.IUserRepository
	log   *slog.Logger
}

func NewUserService(users repositories.IUserRepository, log *slog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// CreateUser registers a new account. Uniqueness violations surface as
// ErrDuplicateNickname from the repository.
func (s *UserService) CreateUser(nickname string) (domain.User, error) {
	if err := validate.Struct(CreateUserCommand{Nickname: nickname}); err != nil {
		return domain.User{}, fmt.Errorf("invalid nickname: %w", err)
	}
	user, err := s.users.CreateUser(nickname)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("User created", "user_id", user.ID, "nickname", user.Nickname)
	return user, nil
}

func (s *UserService) GetUser(id string) (domain.User, error) {
	return s.users.GetUser(id)
}
