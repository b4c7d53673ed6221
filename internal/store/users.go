package store

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"heartlink-server/internal/model"
)

func (s *Store) CreateUser(username, passwordHash string, nowMillis int64) (model.User, error) {
	var user model.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		user = model.User{
			ID:           uuid.NewString(),
			Username:     username,
			PasswordHash: passwordHash,
			CreatedAt:    nowMillis,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// UserByUsername resolves a username in the directory.
func (s *Store) UserByUsername(username string) (model.User, error) {
	var user model.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) Usernames() ([]string, error) {
	usernames := make([]string, 0)
	if err := s.db.Model(&model.User{}).Order("username asc").Pluck("username", &usernames).Error; err != nil {
		return nil, err
	}
	return usernames, nil
}
