//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"duochat/domain"
	"duochat/errors"
)

type IUserRepository interface {
	CreateUser(nickname string) (domain.User, error)
	GetUser(id string) (domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists a new account. The nickname uniqueness check and the
// insert happen in one transaction, so a racing duplicate either fails the
// pre-commit check or the commit itself.
func (u UserRepository) CreateUser(nickname string) (domain.User, error) {
	user := domain.User{
		ID:        uuid.NewString(),
		Nickname:  nickname,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal user: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		nickKey := []byte("nick:" + nickname)
		if _, err := txn.Get(nickKey); err == nil {
			return errors.ErrDuplicateNickname
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(nickKey, []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set([]byte("user:"+user.ID), data)
	})
	if goerrors.Is(err, badger.ErrConflict) {
		return domain.User{}, errors.ErrDuplicateNickname
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) GetUser(id string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:" + id))
		if err != nil {
			if goerrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrUserNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}
